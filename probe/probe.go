// Package probe detects the host OS family and the presence and version of
// required external tools. Probing is read-only; results are cached for the
// duration of one run.
package probe

import (
	"context"
	"runtime"
	"strings"

	"github.com/rigup-dev/rigup/toolexec"
)

// Family is the host operating system family.
type Family string

const (
	FamilyDarwin  Family = "darwin"
	FamilyLinux   Family = "linux"
	FamilyWindows Family = "windows"
	FamilyUnknown Family = "unknown"
)

// DetectFamily maps a GOOS value to a Family. Unrecognized systems map to
// FamilyUnknown rather than failing; callers decide how to proceed.
func DetectFamily(goos string) Family {
	switch goos {
	case "darwin":
		return FamilyDarwin
	case "linux":
		return FamilyLinux
	case "windows":
		return FamilyWindows
	default:
		return FamilyUnknown
	}
}

// Tool describes one probed external tool.
type Tool struct {
	Name    string
	Present bool
	Path    string
	Version string
}

// Info is a snapshot of the host environment.
type Info struct {
	OS    Family
	Arch  string
	Tools map[string]Tool
}

// Detect probes the current host for the named tools. Probing never fails:
// a tool that cannot be found or whose version cannot be read is recorded
// as absent or versionless.
func Detect(ctx context.Context, r toolexec.Runner, tools []string) *Info {
	info := &Info{
		OS:    DetectFamily(runtime.GOOS),
		Arch:  runtime.GOARCH,
		Tools: make(map[string]Tool, len(tools)),
	}
	for _, name := range tools {
		t := Tool{Name: name}
		if path, err := r.LookPath(name); err == nil {
			t.Present = true
			t.Path = path
			t.Version = toolVersion(ctx, r, name)
		}
		info.Tools[name] = t
	}
	return info
}

// toolVersion asks the tool for its version and keeps the first line.
// Tools that do not support --version report an empty version.
func toolVersion(ctx context.Context, r toolexec.Runner, name string) string {
	out, err := r.Output(ctx, "", name, "--version")
	if err != nil {
		return ""
	}
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	return strings.TrimSpace(out)
}

// Has reports whether the named tool was found on the host.
func (i *Info) Has(name string) bool {
	t, ok := i.Tools[name]
	return ok && t.Present
}

// Missing returns the subset of names not found on the host, preserving
// the input order.
func (i *Info) Missing(names ...string) []string {
	var missing []string
	for _, n := range names {
		if !i.Has(n) {
			missing = append(missing, n)
		}
	}
	return missing
}
