package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rigup-dev/rigup/config"
)

func writeAnswersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildInteractorAnswerPrecedence(t *testing.T) {
	upNonInteractive = true
	upAnswersFile = writeAnswersFile(t, "backend.app_id: from-file\nsigning.passphrase: from-file\n")
	t.Cleanup(func() {
		upNonInteractive = false
		upAnswersFile = ""
	})
	t.Setenv("RIGUP_ANSWER_SIGNING__PASSPHRASE", "from-env")

	cfg, err := config.Parse([]byte(`
project:
  name: demo-app
repo:
  owner: acme
  name: demo-app
answers:
  backend.app_id: from-config
  backend.api_key: from-config
`))
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	ask, err := buildInteractor(cfg)
	if err != nil {
		t.Fatalf("buildInteractor: %v", err)
	}

	// File answers override config, env overrides both.
	cases := map[string]string{
		"backend.app_id":     "from-file",
		"backend.api_key":    "from-config",
		"signing.passphrase": "from-env",
	}
	for id, want := range cases {
		got, err := ask.Secret(id, "")
		if err != nil {
			t.Errorf("%s: %v", id, err)
			continue
		}
		if got != want {
			t.Errorf("%s = %q, want %q", id, got, want)
		}
	}
}

func TestBuildInteractorBadAnswersFile(t *testing.T) {
	upNonInteractive = true
	upAnswersFile = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() {
		upNonInteractive = false
		upAnswersFile = ""
	})

	if _, err := buildInteractor(&config.Config{}); err == nil {
		t.Fatal("expected error for unreadable answers file")
	}
}
