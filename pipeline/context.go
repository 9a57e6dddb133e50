package pipeline

import (
	"github.com/rigup-dev/rigup/config"
	"github.com/rigup-dev/rigup/probe"
	"github.com/rigup-dev/rigup/prompt"
	"github.com/rigup-dev/rigup/runlog"
	"github.com/rigup-dev/rigup/secrets"
	"github.com/rigup-dev/rigup/toolexec"
)

// RunContext carries the collaborators and per-run state every stage sees.
// It is owned by one orchestrator invocation.
type RunContext struct {
	// WorkDir is the project checkout being bootstrapped.
	WorkDir string

	Config *config.Config

	// Env is the host snapshot taken at the start of the run. Stage
	// postconditions that must observe the effect of their own action
	// re-probe through Runner instead of reading this cache.
	Env *probe.Info

	Ask    prompt.Interactor
	Log    runlog.Logger
	Runner toolexec.Runner

	// Provisioner pushes secrets to the remote store. Nil when the run
	// has no secret destination configured.
	Provisioner secrets.Provisioner

	// SecretOutcomes records the per-secret results of the provisioning
	// stage for the run summary.
	SecretOutcomes []secrets.Outcome
}
