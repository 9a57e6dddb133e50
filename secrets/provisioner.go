// Package secrets pushes named key/value secrets to a remote store. The one
// shipped implementation targets GitHub Actions repository secrets, but the
// Provisioner contract is store-agnostic.
package secrets

import (
	"context"
	"errors"
)

// Secret is a single value to provision. Secrets exist transiently for one
// run: they are built, transmitted, and discarded, never persisted locally.
type Secret struct {
	// Name is the key under which the value is stored remotely.
	Name string

	// Value is the secret material. An empty value means the user declined
	// to supply one; it is recorded as skipped, not transmitted.
	Value string

	// Destination identifies the target repository as "owner/name".
	Destination string
}

// Status is the per-secret provisioning outcome.
type Status string

const (
	StatusProvisioned Status = "provisioned"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
)

// Outcome reports the result of provisioning one secret. Outcomes are
// independent: a failure on one secret never prevents attempting the rest
// of the batch.
type Outcome struct {
	Name   string
	Status Status
	Err    error
}

// ErrNotAuthenticated is returned by Check when no authenticated session
// with the remote store exists. It is checked once before any individual
// secret is attempted, so a doomed batch fails fast instead of partially.
var ErrNotAuthenticated = errors.New("not authenticated with secret store")

// Provisioner transmits secrets to a remote store.
type Provisioner interface {
	// Check verifies the authenticated session. Returns
	// ErrNotAuthenticated (possibly wrapped) when absent.
	Check(ctx context.Context) error

	// Provision transmits each secret with a non-empty value and returns
	// one Outcome per input secret, in input order.
	Provision(ctx context.Context, secrets []Secret) []Outcome
}

// AllFailed reports whether every attempted (non-skipped) outcome failed
// and at least one was attempted.
func AllFailed(outcomes []Outcome) bool {
	attempted, failed := 0, 0
	for _, o := range outcomes {
		switch o.Status {
		case StatusFailed:
			attempted++
			failed++
		case StatusProvisioned:
			attempted++
		}
	}
	return attempted > 0 && failed == attempted
}
