package stages

import (
	"context"
	"errors"
	"testing"

	"github.com/rigup-dev/rigup/pipeline"
	"github.com/rigup-dev/rigup/probe"
	"github.com/rigup-dev/rigup/prompt"
	"github.com/rigup-dev/rigup/runlog"
	"github.com/rigup-dev/rigup/toolexec"
)

func hostInfo(os probe.Family, present ...string) *probe.Info {
	info := &probe.Info{OS: os, Tools: map[string]probe.Tool{}}
	for _, name := range present {
		info.Tools[name] = probe.Tool{Name: name, Present: true}
	}
	return info
}

func TestToolchainPreconditionSatisfied(t *testing.T) {
	rc := &pipeline.RunContext{
		Config: testConfig(t),
		Env:    hostInfo(probe.FamilyLinux, "git", "openssl"),
	}
	check, err := (&Toolchain{}).Precondition(context.Background(), rc)
	if err != nil {
		t.Fatalf("Precondition: %v", err)
	}
	if check != pipeline.CheckSatisfied {
		t.Errorf("check = %s, want satisfied", check)
	}
}

func TestToolchainInstallsMissing(t *testing.T) {
	runner := toolexec.NewFake()
	rc := &pipeline.RunContext{
		Config: testConfig(t),
		Env:    hostInfo(probe.FamilyLinux, "git"), // openssl missing
		Ask:    prompt.NewScripted(map[string]string{"toolchain.install.openssl": "yes"}),
		Log:    runlog.Discard{},
		Runner: runner,
	}

	if err := (&Toolchain{}).Action(context.Background(), rc); err != nil {
		t.Fatalf("Action: %v", err)
	}
	if got := runner.CallCount("sudo apt-get install -y openssl"); got != 1 {
		t.Errorf("install called %d times: %v", got, runner.Calls)
	}
	if got := runner.CallCount("sudo apt-get install -y git"); got != 0 {
		t.Error("present tool must not be reinstalled")
	}
}

func TestToolchainBrewOnDarwin(t *testing.T) {
	runner := toolexec.NewFake()
	rc := &pipeline.RunContext{
		Config: testConfig(t),
		Env:    hostInfo(probe.FamilyDarwin, "git"),
		Ask:    prompt.NewScripted(map[string]string{"toolchain.install.openssl": "yes"}),
		Log:    runlog.Discard{},
		Runner: runner,
	}

	if err := (&Toolchain{}).Action(context.Background(), rc); err != nil {
		t.Fatalf("Action: %v", err)
	}
	if got := runner.CallCount("brew install openssl"); got != 1 {
		t.Errorf("brew install called %d times: %v", got, runner.Calls)
	}
}

func TestToolchainDeclinedInstall(t *testing.T) {
	rc := &pipeline.RunContext{
		Config: testConfig(t),
		Env:    hostInfo(probe.FamilyLinux, "git"),
		Ask:    prompt.NewScripted(map[string]string{"toolchain.install.openssl": "no"}),
		Log:    runlog.Discard{},
		Runner: toolexec.NewFake(),
	}

	err := (&Toolchain{}).Action(context.Background(), rc)
	if !errors.Is(err, pipeline.ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}
}

func TestToolchainUnknownOS(t *testing.T) {
	rc := &pipeline.RunContext{
		Config: testConfig(t),
		Env:    hostInfo(probe.FamilyUnknown),
		Ask:    prompt.NewScripted(nil),
		Log:    runlog.Discard{},
		Runner: toolexec.NewFake(),
	}

	if err := (&Toolchain{}).Action(context.Background(), rc); err == nil {
		t.Fatal("expected error for unsupported OS family")
	}
}

func TestToolchainMissingScriptedAnswerFails(t *testing.T) {
	rc := &pipeline.RunContext{
		Config: testConfig(t),
		Env:    hostInfo(probe.FamilyLinux, "git"),
		Ask:    prompt.NewScripted(nil),
		Log:    runlog.Discard{},
		Runner: toolexec.NewFake(),
	}

	err := (&Toolchain{}).Action(context.Background(), rc)
	if !prompt.IsMissingAnswer(err) {
		t.Fatalf("expected MissingAnswerError, got %v", err)
	}
}

func TestToolchainPostconditionReprobes(t *testing.T) {
	runner := toolexec.NewFake()
	runner.Missing = []string{"openssl"}
	rc := &pipeline.RunContext{
		Config: testConfig(t),
		Env:    hostInfo(probe.FamilyLinux, "git", "openssl"), // stale cache says present
		Runner: runner,
	}

	check, err := (&Toolchain{}).Postcondition(context.Background(), rc)
	if err != nil {
		t.Fatalf("Postcondition: %v", err)
	}
	if check != pipeline.CheckNotSatisfied {
		t.Errorf("check = %s; postcondition must consult the runner, not the cached probe", check)
	}
}
