package stages

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/rigup-dev/rigup/pipeline"
)

func TestCIPipelineAction(t *testing.T) {
	dir := t.TempDir()
	rc := &pipeline.RunContext{WorkDir: dir, Config: testConfig(t)}
	stage := &CIPipeline{}

	if err := stage.Action(context.Background(), rc); err != nil {
		t.Fatalf("Action: %v", err)
	}

	path := filepath.Join(dir, ".github/workflows/ci.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading workflow: %v", err)
	}

	var doc struct {
		Name string `yaml:"name"`
		On   struct {
			Push struct {
				Branches []string `yaml:"branches"`
			} `yaml:"push"`
		} `yaml:"on"`
		Jobs map[string]any `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("workflow is not YAML: %v\n%s", err, data)
	}
	if len(doc.Jobs) == 0 {
		t.Error("workflow has no jobs")
	}
	if len(doc.On.Push.Branches) != 1 || doc.On.Push.Branches[0] != "main" {
		t.Errorf("push branches = %v, want [main]", doc.On.Push.Branches)
	}
	if !strings.Contains(string(data), "command -v git") {
		t.Error("workflow must verify the configured tools")
	}
	if !strings.Contains(string(data), "command -v openssl") {
		t.Error("workflow must verify the configured tools")
	}
}

func TestCIPipelinePrecondition(t *testing.T) {
	dir := t.TempDir()
	rc := &pipeline.RunContext{WorkDir: dir, Config: testConfig(t)}
	stage := &CIPipeline{}

	check, err := stage.Precondition(context.Background(), rc)
	if err != nil {
		t.Fatalf("Precondition: %v", err)
	}
	if check != pipeline.CheckNotSatisfied {
		t.Errorf("check = %s, want not-satisfied without workflow", check)
	}

	if err := stage.Action(context.Background(), rc); err != nil {
		t.Fatalf("Action: %v", err)
	}
	check, err = stage.Precondition(context.Background(), rc)
	if err != nil {
		t.Fatalf("Precondition: %v", err)
	}
	if check != pipeline.CheckSatisfied {
		t.Errorf("check = %s, want satisfied after scaffold", check)
	}
}

func TestCIPipelinePostconditionRejectsJoblessFile(t *testing.T) {
	dir := t.TempDir()
	rc := &pipeline.RunContext{WorkDir: dir, Config: testConfig(t)}
	stage := &CIPipeline{}

	path := filepath.Join(dir, ".github/workflows/ci.yml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("name: ci\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	check, err := stage.Postcondition(context.Background(), rc)
	if err != nil {
		t.Fatalf("Postcondition: %v", err)
	}
	if check != pipeline.CheckNotSatisfied {
		t.Errorf("check = %s, want not-satisfied for a workflow without jobs", check)
	}
}
