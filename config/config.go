// Package config loads and validates rigup.yaml, the per-project bootstrap
// configuration, and assembles the scripted-answer map for non-interactive
// runs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config models rigup.yaml.
type Config struct {
	Project struct {
		Name string `yaml:"name"`
	} `yaml:"project"`

	Repo struct {
		Owner         string `yaml:"owner"`
		Name          string `yaml:"name"`
		DefaultBranch string `yaml:"default_branch"`
	} `yaml:"repo"`

	Toolchain struct {
		// Tools are the external binaries the project needs on PATH.
		Tools []string `yaml:"tools"`
	} `yaml:"toolchain"`

	Backend struct {
		Provider string `yaml:"provider"`
		AppID    string `yaml:"app_id"`
		// File is the backend config path, relative to the work dir.
		File string `yaml:"file"`
	} `yaml:"backend"`

	Signing struct {
		KeyFile string `yaml:"key_file"`
		Bits    int    `yaml:"bits"`
	} `yaml:"signing"`

	CI struct {
		Workflow string `yaml:"workflow"`
	} `yaml:"ci"`

	Secrets []SecretSpec `yaml:"secrets"`

	GitHub struct {
		// TokenEnv names the environment variable holding the API token.
		TokenEnv string `yaml:"token_env"`
	} `yaml:"github"`

	// Answers pre-supplies scripted-mode prompt answers, keyed by prompt
	// identifier. Lowest-precedence answer source.
	Answers map[string]string `yaml:"answers"`
}

// SecretSpec names one secret to provision remotely.
type SecretSpec struct {
	Name string `yaml:"name"`
	// FromEnv names an environment variable to source the value from
	// before falling back to a prompt.
	FromEnv string `yaml:"from_env"`
	Prompt  string `yaml:"prompt"`
}

// Destination returns the owner/name repository identifier.
func (c *Config) Destination() string {
	return c.Repo.Owner + "/" + c.Repo.Name
}

// Load reads, schema-validates, and defaults the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found (run from the project root or pass --config)", path)
		}
		return nil, err
	}
	return Parse(data)
}

// Parse validates raw YAML against the config schema and unmarshals it.
func Parse(data []byte) (*Config, error) {
	issues, err := ValidateSchema(data)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		return nil, &InvalidConfigError{Issues: issues}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Repo.DefaultBranch == "" {
		c.Repo.DefaultBranch = "main"
	}
	if len(c.Toolchain.Tools) == 0 {
		c.Toolchain.Tools = []string{"git", "openssl"}
	}
	if c.Backend.File == "" {
		c.Backend.File = "backend/app_config.json"
	}
	if c.Signing.KeyFile == "" {
		c.Signing.KeyFile = "keys/release_signing.pem"
	}
	if c.Signing.Bits == 0 {
		c.Signing.Bits = 4096
	}
	if c.CI.Workflow == "" {
		c.CI.Workflow = ".github/workflows/ci.yml"
	}
	if c.GitHub.TokenEnv == "" {
		c.GitHub.TokenEnv = "GITHUB_TOKEN"
	}
}

// InvalidConfigError carries the schema violations found in a config file.
type InvalidConfigError struct {
	Issues []string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d issue(s), first: %s", len(e.Issues), e.Issues[0])
}
