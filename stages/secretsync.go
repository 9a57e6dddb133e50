package stages

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rigup-dev/rigup/config"
	"github.com/rigup-dev/rigup/pipeline"
	"github.com/rigup-dev/rigup/prompt"
	"github.com/rigup-dev/rigup/secrets"
)

// SecretSync provisions the configured secrets to the remote store.
// Authentication is checked once before any secret is attempted; after
// that each secret's outcome is independent, and the stage only fails when
// every attempted secret failed.
type SecretSync struct{}

func (s *SecretSync) Name() string        { return "secret-sync" }
func (s *SecretSync) DependsOn() []string { return []string{"git-init", "ci-pipeline"} }

// Precondition cannot observe remote state (secret values are write-only),
// so it reports indeterminate and the stage always runs. Provisioning is
// idempotent: re-putting a secret overwrites the same key.
func (s *SecretSync) Precondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	if len(rc.Config.Secrets) == 0 {
		return pipeline.CheckSatisfied, nil
	}
	return pipeline.CheckIndeterminate, nil
}

func (s *SecretSync) Action(ctx context.Context, rc *pipeline.RunContext) error {
	if rc.Provisioner == nil {
		return fmt.Errorf("no secret store configured (set %s)", rc.Config.GitHub.TokenEnv)
	}
	if err := rc.Provisioner.Check(ctx); err != nil {
		return fmt.Errorf("secret store: %w", err)
	}

	batch := make([]secrets.Secret, 0, len(rc.Config.Secrets))
	for _, spec := range rc.Config.Secrets {
		value, err := s.collect(rc, spec)
		if err != nil {
			return err
		}
		batch = append(batch, secrets.Secret{
			Name:        spec.Name,
			Value:       value,
			Destination: rc.Config.Destination(),
		})
	}

	outcomes := rc.Provisioner.Provision(ctx, batch)
	rc.SecretOutcomes = outcomes
	for _, o := range outcomes {
		fields := map[string]any{"stage": s.Name(), "secret": o.Name, "status": string(o.Status)}
		switch o.Status {
		case secrets.StatusFailed:
			fields["error"] = o.Err.Error()
			rc.Log.Warn("secret not provisioned", fields)
		case secrets.StatusSkipped:
			rc.Log.Info("secret skipped", fields)
		default:
			rc.Log.Success("secret provisioned", fields)
		}
	}

	if secrets.AllFailed(outcomes) {
		return fmt.Errorf("all %d attempted secrets failed", len(outcomes))
	}
	return nil
}

// collect resolves one secret's value: environment first, then a prompt.
// A declined or unscripted prompt yields an empty value, which the
// provisioner records as skipped rather than failed.
func (s *SecretSync) collect(rc *pipeline.RunContext, spec config.SecretSpec) (string, error) {
	if spec.FromEnv != "" {
		if v := os.Getenv(spec.FromEnv); v != "" {
			return v, nil
		}
	}
	label := spec.Prompt
	if label == "" {
		label = "Value for secret " + spec.Name
	}
	value, err := rc.Ask.Secret("secret."+strings.ToLower(spec.Name), label)
	if err != nil {
		if prompt.IsMissingAnswer(err) {
			return "", nil
		}
		if errors.Is(err, prompt.ErrInterrupted) {
			return "", err
		}
		return "", fmt.Errorf("collecting secret %s: %w", spec.Name, err)
	}
	return value, nil
}

// Postcondition: the action already aggregated per-secret outcomes, and a
// batch where at least one secret landed (or nothing needed transmitting)
// is the desired state.
func (s *SecretSync) Postcondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	if secrets.AllFailed(rc.SecretOutcomes) {
		return pipeline.CheckNotSatisfied, nil
	}
	return pipeline.CheckSatisfied, nil
}
