package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rigup-dev/rigup/pipeline"
)

// passphraseEnv carries the signing passphrase to openssl. Using the
// environment keeps it out of process listings.
const passphraseEnv = "RIGUP_SIGNING_PASSPHRASE"

// SigningKey generates the release signing key with openssl. The key is
// written to a temp file and renamed into place, so an interrupted
// generation never leaves a half-written key that satisfies the
// precondition.
type SigningKey struct{}

func (s *SigningKey) Name() string        { return "signing-key" }
func (s *SigningKey) DependsOn() []string { return []string{"toolchain"} }

func (s *SigningKey) path(rc *pipeline.RunContext) string {
	return filepath.Join(rc.WorkDir, rc.Config.Signing.KeyFile)
}

func (s *SigningKey) Precondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	if _, err := os.Stat(s.path(rc)); err != nil {
		if os.IsNotExist(err) {
			return pipeline.CheckNotSatisfied, nil
		}
		return pipeline.CheckIndeterminate, fmt.Errorf("probing signing key: %w", err)
	}
	return pipeline.CheckSatisfied, nil
}

func (s *SigningKey) Action(ctx context.Context, rc *pipeline.RunContext) error {
	passphrase, err := rc.Ask.Secret("signing.passphrase", "Signing key passphrase")
	if err != nil {
		return fmt.Errorf("collecting passphrase: %w", err)
	}
	if passphrase == "" {
		return fmt.Errorf("signing key passphrase must not be empty")
	}

	keyPath := s.path(rc)
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	tmpPath := keyPath + ".tmp"
	defer os.Remove(tmpPath)

	if err := os.Setenv(passphraseEnv, passphrase); err != nil {
		return fmt.Errorf("setting passphrase env: %w", err)
	}
	defer os.Unsetenv(passphraseEnv)

	err = rc.Runner.Run(ctx, rc.WorkDir, "openssl",
		"genpkey",
		"-algorithm", "RSA",
		"-pkeyopt", fmt.Sprintf("rsa_keygen_bits:%d", rc.Config.Signing.Bits),
		"-aes-256-cbc",
		"-pass", "env:"+passphraseEnv,
		"-out", tmpPath,
	)
	if err != nil {
		return fmt.Errorf("generating signing key: %w", err)
	}

	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("restricting key permissions: %w", err)
	}
	if err := os.Rename(tmpPath, keyPath); err != nil {
		return fmt.Errorf("moving key into place: %w", err)
	}
	return nil
}

func (s *SigningKey) Postcondition(ctx context.Context, rc *pipeline.RunContext) (pipeline.Check, error) {
	data, err := os.ReadFile(s.path(rc))
	if err != nil {
		return pipeline.CheckNotSatisfied, nil
	}
	if !strings.Contains(string(data), "PRIVATE KEY") {
		return pipeline.CheckNotSatisfied, nil
	}
	return pipeline.CheckSatisfied, nil
}
