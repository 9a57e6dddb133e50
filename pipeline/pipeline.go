// Package pipeline is the orchestration core: the stage contract, the stage
// registry with dependency resolution, and the orchestrator that runs a
// requested subset of stages with idempotent-resume semantics.
package pipeline

import (
	"context"
	"errors"
	"time"
)

// Check is the tri-state result of a precondition or postcondition
// predicate. Indeterminate is distinct from both outcomes so callers handle
// "could not tell" explicitly instead of silently treating it as success.
type Check int

const (
	CheckIndeterminate Check = iota
	CheckSatisfied
	CheckNotSatisfied
)

func (c Check) String() string {
	switch c {
	case CheckSatisfied:
		return "satisfied"
	case CheckNotSatisfied:
		return "not-satisfied"
	default:
		return "indeterminate"
	}
}

// Stage is a named, idempotent unit of bootstrap work. Stages are immutable
// registry entries shared read-only across runs; all per-run state lives in
// the RunContext.
type Stage interface {
	// Name is the stage's unique, stable identifier.
	Name() string

	// DependsOn lists the names of stages that must reach a terminal
	// outcome before this one runs.
	DependsOn() []string

	// Precondition reports whether the stage's desired state already
	// holds. It must be free of side effects.
	Precondition(ctx context.Context, rc *RunContext) (Check, error)

	// Action performs the stage's work. It is only invoked when the
	// precondition is not satisfied (or the run is forced), and must be
	// written so that a partial application is cleanly resumable.
	Action(ctx context.Context, rc *RunContext) error

	// Postcondition verifies the action's effect actually took hold,
	// distinguishing "the tool claimed success" from "the desired state
	// was reached".
	Postcondition(ctx context.Context, rc *RunContext) (Check, error)
}

// ErrDeclined is returned (possibly wrapped) by a stage action when the
// user declined the work at a confirmation prompt. The stage is recorded
// as Skipped, not Failed.
var ErrDeclined = errors.New("declined by user")

// Status is a stage's terminal outcome within one run.
type Status string

const (
	// StatusSkipped: the precondition was already satisfied, or the user
	// declined the stage's work.
	StatusSkipped Status = "skipped"

	// StatusSucceeded: the action ran and the postcondition holds.
	StatusSucceeded Status = "succeeded"

	// StatusFailed: the action errored, a check could not be evaluated,
	// or the postcondition did not hold after a successful action.
	StatusFailed Status = "failed"

	// StatusAborted: never attempted, because a dependency failed, the
	// run was halted, or the run was interrupted.
	StatusAborted Status = "aborted"
)

// StageResult is the per-stage outcome of a run.
type StageResult struct {
	Stage    string
	Status   Status
	Reason   string
	Duration time.Duration
}

// RunRequest names the stages the caller wants executed plus run policy.
type RunRequest struct {
	// Stages are the requested stage names; their transitive dependency
	// closure is executed as well.
	Stages []string

	// HaltOnFailure stops the run at the first stage failure instead of
	// continuing with independent stages.
	HaltOnFailure bool

	// Force runs actions even when preconditions report satisfied.
	Force bool
}

// Succeeded reports aggregate success: every result Skipped or Succeeded.
func Succeeded(results []StageResult) bool {
	for _, r := range results {
		if r.Status == StatusFailed || r.Status == StatusAborted {
			return false
		}
	}
	return true
}
