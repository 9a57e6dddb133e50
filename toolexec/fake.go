package toolexec

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is a scriptable Runner for tests. Commands are matched by their
// joined "name arg..." form; unscripted commands succeed with empty output.
type Fake struct {
	mu sync.Mutex

	// Results maps a command line to its canned result.
	Results map[string]FakeResult

	// Missing lists binary names LookPath should report as absent.
	Missing []string

	// Calls records every executed command line in order.
	Calls []string
}

// FakeResult is the scripted outcome for one command line.
type FakeResult struct {
	Stdout string
	Err    error
}

// NewFake creates an empty Fake runner.
func NewFake() *Fake {
	return &Fake{Results: make(map[string]FakeResult)}
}

// Script sets the canned result for a command line.
func (f *Fake) Script(cmdline, stdout string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results[cmdline] = FakeResult{Stdout: stdout, Err: err}
}

func (f *Fake) record(name string, args []string) FakeResult {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, line)
	return f.Results[line]
}

func (f *Fake) Run(ctx context.Context, dir, name string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.record(name, args).Err
}

func (f *Fake) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res := f.record(name, args)
	return res.Stdout, res.Err
}

func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.Missing {
		if m == name {
			return "", fmt.Errorf("%s: executable file not found in $PATH", name)
		}
	}
	return "/usr/bin/" + name, nil
}

// CallCount reports how many recorded calls start with prefix.
func (f *Fake) CallCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
