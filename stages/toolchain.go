package stages

import (
	"context"
	"fmt"

	"github.com/rigup-dev/rigup/pipeline"
	"github.com/rigup-dev/rigup/probe"
)

// Toolchain installs the external tools the project needs, using the
// package manager of the detected OS family. Each missing tool is
// confirmed individually; declining aborts the remaining installs and
// records the stage as skipped.
type Toolchain struct{}

func (s *Toolchain) Name() string        { return "toolchain" }
func (s *Toolchain) DependsOn() []string { return nil }

func (s *Toolchain) Precondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	if len(rc.Env.Missing(rc.Config.Toolchain.Tools...)) == 0 {
		return pipeline.CheckSatisfied, nil
	}
	return pipeline.CheckNotSatisfied, nil
}

func (s *Toolchain) Action(ctx context.Context, rc *pipeline.RunContext) error {
	installer, err := installCommand(rc.Env.OS)
	if err != nil {
		return err
	}
	for _, tool := range rc.Env.Missing(rc.Config.Toolchain.Tools...) {
		ok, err := rc.Ask.Confirm("toolchain.install."+tool,
			fmt.Sprintf("Install %s with %s", tool, installer[0]))
		if err != nil {
			return fmt.Errorf("confirming install of %s: %w", tool, err)
		}
		if !ok {
			return fmt.Errorf("install of %s: %w", tool, pipeline.ErrDeclined)
		}
		rc.Log.Info("installing tool", map[string]any{"stage": s.Name(), "tool": tool})
		args := append(installer[1:], tool)
		if err := rc.Runner.Run(ctx, rc.WorkDir, installer[0], args...); err != nil {
			return fmt.Errorf("installing %s: %w", tool, err)
		}
	}
	return nil
}

// Postcondition re-probes through the runner rather than the cached
// snapshot, since the snapshot predates this stage's installs.
func (s *Toolchain) Postcondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	for _, tool := range rc.Config.Toolchain.Tools {
		if _, err := rc.Runner.LookPath(tool); err != nil {
			return pipeline.CheckNotSatisfied, nil
		}
	}
	return pipeline.CheckSatisfied, nil
}

// installCommand picks the package-manager invocation for the OS family.
func installCommand(os probe.Family) ([]string, error) {
	switch os {
	case probe.FamilyDarwin:
		return []string{"brew", "install"}, nil
	case probe.FamilyLinux:
		return []string{"sudo", "apt-get", "install", "-y"}, nil
	default:
		return nil, fmt.Errorf("no supported package manager for OS family %q", os)
	}
}
