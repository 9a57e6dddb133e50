package stages

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/rigup-dev/rigup/pipeline"
)

// CIPipeline scaffolds the GitHub Actions workflow file from the embedded
// template.
type CIPipeline struct{}

func (s *CIPipeline) Name() string        { return "ci-pipeline" }
func (s *CIPipeline) DependsOn() []string { return []string{"git-init"} }

func (s *CIPipeline) path(rc *pipeline.RunContext) string {
	return filepath.Join(rc.WorkDir, rc.Config.CI.Workflow)
}

func (s *CIPipeline) Precondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	if _, err := os.Stat(s.path(rc)); err != nil {
		if os.IsNotExist(err) {
			return pipeline.CheckNotSatisfied, nil
		}
		return pipeline.CheckIndeterminate, fmt.Errorf("probing workflow file: %w", err)
	}
	return pipeline.CheckSatisfied, nil
}

func (s *CIPipeline) Action(ctx context.Context, rc *pipeline.RunContext) error {
	tmpl, err := template.ParseFS(templateFS, "templates/ci.yml.tmpl")
	if err != nil {
		return fmt.Errorf("parsing workflow template: %w", err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]any{
		"Project": rc.Config.Project.Name,
		"Branch":  rc.Config.Repo.DefaultBranch,
		"Tools":   rc.Config.Toolchain.Tools,
	})
	if err != nil {
		return fmt.Errorf("rendering workflow: %w", err)
	}
	return writeAtomic(s.path(rc), buf.Bytes(), 0o644)
}

// Postcondition parses the written workflow: a file that is not valid YAML
// with a jobs section would be rejected by the CI system anyway.
func (s *CIPipeline) Postcondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	data, err := os.ReadFile(s.path(rc))
	if err != nil {
		return pipeline.CheckNotSatisfied, nil
	}
	var doc struct {
		Jobs map[string]any `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil || len(doc.Jobs) == 0 {
		return pipeline.CheckNotSatisfied, nil
	}
	return pipeline.CheckSatisfied, nil
}
