// Package toolexec wraps external command execution so stages and probes can
// be tested against a scriptable fake.
package toolexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner executes external tools. Implementations must be safe to reuse
// across calls.
type Runner interface {
	// Run executes the command in dir, streaming output to the runner's
	// writers. A non-zero exit is returned as an error that includes the
	// tail of stderr.
	Run(ctx context.Context, dir, name string, args ...string) error

	// Output executes the command in dir and returns its trimmed stdout.
	Output(ctx context.Context, dir, name string, args ...string) (string, error)

	// LookPath reports the absolute path of name on PATH.
	LookPath(name string) (string, error)
}

// Exec is the os/exec-backed Runner used outside of tests.
type Exec struct {
	// Env entries are appended to the inherited environment.
	Env map[string]string

	// Stdout and Stderr receive command output during Run. They default
	// to the process's own streams so installer output stays visible.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec creates an Exec runner inheriting the current process streams.
func NewExec() *Exec {
	return &Exec{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *Exec) command(ctx context.Context, dir, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	env := os.Environ()
	for k, v := range e.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = env
	return cmd
}

func (e *Exec) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := e.command(ctx, dir, name, args...)
	var tail bytes.Buffer
	cmd.Stdout = e.Stdout
	if e.Stderr != nil {
		cmd.Stderr = io.MultiWriter(e.Stderr, &tail)
	} else {
		cmd.Stderr = &tail
	}
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(tail.String())
		if detail != "" {
			return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, lastLine(detail))
		}
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

func (e *Exec) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := e.command(ctx, dir, name, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, lastLine(strings.TrimSpace(string(exitErr.Stderr))))
		}
		return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
