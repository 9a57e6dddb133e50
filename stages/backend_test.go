package stages

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rigup-dev/rigup/pipeline"
	"github.com/rigup-dev/rigup/prompt"
	"github.com/rigup-dev/rigup/runlog"
)

func TestBackendConfigAction(t *testing.T) {
	dir := t.TempDir()
	rc := &pipeline.RunContext{
		WorkDir: dir,
		Config:  testConfig(t),
		Ask: prompt.NewScripted(map[string]string{
			"backend.app_id":  "1:42:android:cafe",
			"backend.api_key": "AIza-test",
		}),
		Log: runlog.Discard{},
	}
	stage := &BackendConfig{}

	if err := stage.Action(context.Background(), rc); err != nil {
		t.Fatalf("Action: %v", err)
	}

	path := filepath.Join(dir, "backend/app_config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("generated config is not JSON: %v\n%s", err, data)
	}
	if got["app_id"] != "1:42:android:cafe" || got["api_key"] != "AIza-test" {
		t.Errorf("config = %v", got)
	}
	if got["provider"] != "firebase" || got["project"] != "demo-app" {
		t.Errorf("config = %v", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600 (file holds an API key)", info.Mode().Perm())
	}

	check, err := stage.Postcondition(context.Background(), rc)
	if err != nil {
		t.Fatalf("Postcondition: %v", err)
	}
	if check != pipeline.CheckSatisfied {
		t.Errorf("postcondition = %s", check)
	}

	// No temp leftovers from the atomic write.
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestBackendConfigPostconditionRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	rc := &pipeline.RunContext{WorkDir: dir, Config: testConfig(t)}
	stage := &BackendConfig{}

	path := filepath.Join(dir, "backend/app_config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	check, err := stage.Postcondition(context.Background(), rc)
	if err != nil {
		t.Fatalf("Postcondition: %v", err)
	}
	if check != pipeline.CheckNotSatisfied {
		t.Errorf("check = %s, want not-satisfied for malformed file", check)
	}
}

func TestBackendConfigMissingScriptedAnswer(t *testing.T) {
	rc := &pipeline.RunContext{
		WorkDir: t.TempDir(),
		Config:  testConfig(t),
		Ask:     prompt.NewScripted(map[string]string{"backend.app_id": "1:1:ios:a"}),
		Log:     runlog.Discard{},
	}
	err := (&BackendConfig{}).Action(context.Background(), rc)
	if !prompt.IsMissingAnswer(err) {
		t.Fatalf("expected MissingAnswerError for api key, got %v", err)
	}
}
