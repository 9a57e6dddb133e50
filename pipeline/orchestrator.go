package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rigup-dev/rigup/prompt"
	"github.com/rigup-dev/rigup/runlog"
)

// Orchestrator runs stages in resolved dependency order, one at a time.
// Failures never propagate past the stage loop: every outcome is captured
// in a StageResult and the run continues per the halt policy.
type Orchestrator struct {
	registry *Registry
	log      runlog.Logger
}

// NewOrchestrator creates an Orchestrator over the given registry.
func NewOrchestrator(registry *Registry, log runlog.Logger) *Orchestrator {
	return &Orchestrator{registry: registry, log: log}
}

// Run executes the request and returns one StageResult per stage in the
// resolved order. The error return is reserved for configuration problems
// (unknown stage, cycle); stage failures are reported in the results.
//
// Re-running the same request after a partial failure is safe: stages
// whose precondition reports satisfied are skipped, so a resumed run only
// performs the remaining work.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest, rc *RunContext) ([]StageResult, error) {
	order, err := o.registry.ResolveOrder(req.Stages)
	if err != nil {
		return nil, err
	}

	results := make([]StageResult, 0, len(order))
	outcomes := make(map[string]Status, len(order))
	halted := false
	interrupted := false

	record := func(s Stage, status Status, reason string, started time.Time) {
		var d time.Duration
		if !started.IsZero() {
			d = time.Since(started)
		}
		outcomes[s.Name()] = status
		results = append(results, StageResult{Stage: s.Name(), Status: status, Reason: reason, Duration: d})
	}

	for _, s := range order {
		name := s.Name()
		fields := map[string]any{"stage": name}

		if halted {
			record(s, StatusAborted, "run halted by earlier failure", time.Time{})
			o.log.Warn("stage aborted", fields)
			continue
		}
		if interrupted || ctx.Err() != nil {
			record(s, StatusAborted, "run interrupted", time.Time{})
			o.log.Warn("stage aborted", fields)
			continue
		}
		if dep, bad := failedDependency(s, outcomes); bad {
			record(s, StatusAborted, fmt.Sprintf("dependency %s did not succeed", dep), time.Time{})
			o.log.Warn("stage aborted", map[string]any{"stage": name, "dependency": dep})
			continue
		}

		started := time.Now()

		if !req.Force {
			check, err := s.Precondition(ctx, rc)
			if err != nil {
				record(s, StatusFailed, fmt.Sprintf("precondition: %v", err), started)
				o.log.Error("precondition check failed", map[string]any{"stage": name, "error": err.Error()})
				if req.HaltOnFailure {
					halted = true
				}
				continue
			}
			if check == CheckSatisfied {
				record(s, StatusSkipped, "already satisfied", started)
				o.log.Info("stage already satisfied", fields)
				continue
			}
		}

		o.log.Info("running stage", fields)
		if err := s.Action(ctx, rc); err != nil {
			switch {
			case errors.Is(err, ErrDeclined):
				record(s, StatusSkipped, err.Error(), started)
				o.log.Info("stage declined", fields)
			case ctx.Err() != nil, errors.Is(err, prompt.ErrInterrupted):
				// A terminal interrupt mid-prompt is a fatal abort of the
				// whole run, same as an OS-level interrupt mid-action.
				record(s, StatusAborted, "run interrupted", started)
				o.log.Warn("stage aborted", fields)
				interrupted = true
			default:
				record(s, StatusFailed, err.Error(), started)
				o.log.Error("stage failed", map[string]any{"stage": name, "error": err.Error()})
				if req.HaltOnFailure {
					halted = true
				}
			}
			continue
		}

		check, err := s.Postcondition(ctx, rc)
		if err != nil {
			record(s, StatusFailed, fmt.Sprintf("postcondition: %v", err), started)
			o.log.Error("postcondition check failed", map[string]any{"stage": name, "error": err.Error()})
			if req.HaltOnFailure {
				halted = true
			}
			continue
		}
		if check != CheckSatisfied {
			// The action reported success but the desired state is absent
			// (or unprovable). That is a failure, not a success.
			record(s, StatusFailed, "postcondition not met", started)
			o.log.Error("postcondition not met", fields)
			if req.HaltOnFailure {
				halted = true
			}
			continue
		}

		record(s, StatusSucceeded, "", started)
		o.log.Success("stage succeeded", fields)
	}

	return results, nil
}

// failedDependency reports the first dependency of s whose outcome in this
// run was Failed or Aborted.
func failedDependency(s Stage, outcomes map[string]Status) (string, bool) {
	for _, dep := range s.DependsOn() {
		switch outcomes[dep] {
		case StatusFailed, StatusAborted:
			return dep, true
		}
	}
	return "", false
}
