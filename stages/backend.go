package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/rigup-dev/rigup/pipeline"
)

// BackendConfig writes the mobile-backend configuration file the app's SDK
// expects, collecting the application ID and API key through the
// interaction controller.
type BackendConfig struct{}

func (s *BackendConfig) Name() string        { return "backend-config" }
func (s *BackendConfig) DependsOn() []string { return []string{"toolchain"} }

func (s *BackendConfig) path(rc *pipeline.RunContext) string {
	return filepath.Join(rc.WorkDir, rc.Config.Backend.File)
}

func (s *BackendConfig) Precondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	if _, err := os.Stat(s.path(rc)); err != nil {
		if os.IsNotExist(err) {
			return pipeline.CheckNotSatisfied, nil
		}
		return pipeline.CheckIndeterminate, fmt.Errorf("probing backend config: %w", err)
	}
	return pipeline.CheckSatisfied, nil
}

func (s *BackendConfig) Action(ctx context.Context, rc *pipeline.RunContext) error {
	appID, err := rc.Ask.Text("backend.app_id", "Backend application ID", rc.Config.Backend.AppID)
	if err != nil {
		return fmt.Errorf("collecting app ID: %w", err)
	}
	apiKey, err := rc.Ask.Secret("backend.api_key", "Backend API key")
	if err != nil {
		return fmt.Errorf("collecting API key: %w", err)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/backend_config.json.tmpl")
	if err != nil {
		return fmt.Errorf("parsing backend config template: %w", err)
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, map[string]string{
		"Provider": rc.Config.Backend.Provider,
		"Project":  rc.Config.Project.Name,
		"AppID":    appID,
		"APIKey":   apiKey,
	})
	if err != nil {
		return fmt.Errorf("rendering backend config: %w", err)
	}

	return writeAtomic(s.path(rc), buf.Bytes(), 0o600)
}

func (s *BackendConfig) Postcondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	data, err := os.ReadFile(s.path(rc))
	if err != nil {
		return pipeline.CheckNotSatisfied, nil
	}
	var cfg struct {
		AppID string `json:"app_id"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.AppID == "" {
		return pipeline.CheckNotSatisfied, nil
	}
	return pipeline.CheckSatisfied, nil
}

// writeAtomic writes data next to path and renames it into place, so a
// half-written file never satisfies a precondition on the next run.
func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
