// Package stages implements the concrete bootstrap stages: toolchain
// install, git initialization, mobile-backend configuration, signing-key
// generation, CI pipeline scaffolding, and remote secret provisioning.
package stages

import "embed"

//go:embed templates
var templateFS embed.FS
