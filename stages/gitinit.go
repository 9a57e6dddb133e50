package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rigup-dev/rigup/pipeline"
)

// GitInit initializes the local repository: git init, an initial commit,
// and an origin remote pointing at the configured repository.
type GitInit struct{}

func (s *GitInit) Name() string        { return "git-init" }
func (s *GitInit) DependsOn() []string { return nil }

func (s *GitInit) Precondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	info, err := os.Stat(filepath.Join(rc.WorkDir, ".git"))
	if err != nil {
		if os.IsNotExist(err) {
			return pipeline.CheckNotSatisfied, nil
		}
		return pipeline.CheckIndeterminate, fmt.Errorf("probing .git: %w", err)
	}
	if !info.IsDir() {
		return pipeline.CheckNotSatisfied, nil
	}
	return pipeline.CheckSatisfied, nil
}

func (s *GitInit) Action(ctx context.Context, rc *pipeline.RunContext) error {
	branch := rc.Config.Repo.DefaultBranch
	if err := rc.Runner.Run(ctx, rc.WorkDir, "git", "init", "--initial-branch", branch); err != nil {
		return fmt.Errorf("git init: %w", err)
	}

	// An initial commit only if the repository has none yet; rev-parse
	// fails on an unborn branch.
	if _, err := rc.Runner.Output(ctx, rc.WorkDir, "git", "rev-parse", "HEAD"); err != nil {
		if err := rc.Runner.Run(ctx, rc.WorkDir, "git", "add", "-A"); err != nil {
			return fmt.Errorf("git add: %w", err)
		}
		if err := rc.Runner.Run(ctx, rc.WorkDir, "git", "commit", "--allow-empty", "-m", "Bootstrap "+rc.Config.Project.Name); err != nil {
			return fmt.Errorf("git commit: %w", err)
		}
	}

	remote := fmt.Sprintf("https://github.com/%s.git", rc.Config.Destination())
	if _, err := rc.Runner.Output(ctx, rc.WorkDir, "git", "remote", "get-url", "origin"); err != nil {
		if err := rc.Runner.Run(ctx, rc.WorkDir, "git", "remote", "add", "origin", remote); err != nil {
			return fmt.Errorf("git remote add: %w", err)
		}
	}
	return nil
}

func (s *GitInit) Postcondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	if _, err := rc.Runner.Output(ctx, rc.WorkDir, "git", "rev-parse", "--git-dir"); err != nil {
		return pipeline.CheckNotSatisfied, nil
	}
	return pipeline.CheckSatisfied, nil
}
