package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rigup-dev/rigup/prompt"
	"github.com/rigup-dev/rigup/runlog"
)

func runStages(t *testing.T, reg *Registry, req RunRequest) []StageResult {
	t.Helper()
	orch := NewOrchestrator(reg, runlog.Discard{})
	results, err := orch.Run(context.Background(), req, &RunContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return results
}

func resultByStage(t *testing.T, results []StageResult, name string) StageResult {
	t.Helper()
	for _, r := range results {
		if r.Stage == name {
			return r
		}
	}
	t.Fatalf("no result for stage %s in %v", name, results)
	return StageResult{}
}

func TestRunDependencySucceedsThenStageFails(t *testing.T) {
	a := okStage("a")
	b := okStage("b", "a")
	b.actionErr = fmt.Errorf("tool exited 1")

	reg := NewRegistry()
	mustRegister(t, reg, a, b)

	results := runStages(t, reg, RunRequest{Stages: []string{"b"}})

	if got := resultByStage(t, results, "a").Status; got != StatusSucceeded {
		t.Errorf("a = %s, want succeeded", got)
	}
	if got := resultByStage(t, results, "b").Status; got != StatusFailed {
		t.Errorf("b = %s, want failed", got)
	}
	if Succeeded(results) {
		t.Error("aggregate should not be success")
	}
}

func TestRunFailedDependencyAbortsDependents(t *testing.T) {
	a := okStage("a")
	a.actionErr = fmt.Errorf("boom")
	b := okStage("b", "a")

	reg := NewRegistry()
	mustRegister(t, reg, a, b)

	results := runStages(t, reg, RunRequest{Stages: []string{"b"}})

	if got := resultByStage(t, results, "a").Status; got != StatusFailed {
		t.Errorf("a = %s, want failed", got)
	}
	if got := resultByStage(t, results, "b").Status; got != StatusAborted {
		t.Errorf("b = %s, want aborted", got)
	}
	if b.actionCalls != 0 {
		t.Errorf("b action invoked %d times, want 0", b.actionCalls)
	}
}

func TestRunAbortPropagatesTransitively(t *testing.T) {
	a := okStage("a")
	a.actionErr = fmt.Errorf("boom")
	b := okStage("b", "a")
	c := okStage("c", "b")

	reg := NewRegistry()
	mustRegister(t, reg, a, b, c)

	results := runStages(t, reg, RunRequest{Stages: []string{"c"}})

	if got := resultByStage(t, results, "b").Status; got != StatusAborted {
		t.Errorf("b = %s, want aborted", got)
	}
	if got := resultByStage(t, results, "c").Status; got != StatusAborted {
		t.Errorf("c = %s, want aborted", got)
	}
}

func TestRunIndependentStagesContinueAfterFailure(t *testing.T) {
	a := okStage("a")
	a.actionErr = fmt.Errorf("boom")
	b := okStage("b") // no edge to a

	reg := NewRegistry()
	mustRegister(t, reg, a, b)

	results := runStages(t, reg, RunRequest{Stages: []string{"a", "b"}})

	if got := resultByStage(t, results, "b").Status; got != StatusSucceeded {
		t.Errorf("b = %s, want succeeded (failures are contained)", got)
	}
}

func TestRunHaltOnFailure(t *testing.T) {
	a := okStage("a")
	a.actionErr = fmt.Errorf("boom")
	b := okStage("b")
	c := okStage("c")

	reg := NewRegistry()
	mustRegister(t, reg, a, b, c)

	results := runStages(t, reg, RunRequest{Stages: []string{"a", "b", "c"}, HaltOnFailure: true})

	for _, name := range []string{"b", "c"} {
		if got := resultByStage(t, results, name).Status; got != StatusAborted {
			t.Errorf("%s = %s, want aborted after halt", name, got)
		}
	}
	if b.actionCalls != 0 || c.actionCalls != 0 {
		t.Error("halted stages must not run their actions")
	}
}

func TestRunSkipsSatisfiedPrecondition(t *testing.T) {
	a := okStage("a")
	a.pre = CheckSatisfied

	reg := NewRegistry()
	mustRegister(t, reg, a)

	results := runStages(t, reg, RunRequest{Stages: []string{"a"}})

	if got := resultByStage(t, results, "a").Status; got != StatusSkipped {
		t.Errorf("a = %s, want skipped", got)
	}
	if a.actionCalls != 0 {
		t.Errorf("action invoked %d times for satisfied stage", a.actionCalls)
	}
}

func TestRunForceRunsSatisfiedStage(t *testing.T) {
	a := okStage("a")
	a.pre = CheckSatisfied

	reg := NewRegistry()
	mustRegister(t, reg, a)

	results := runStages(t, reg, RunRequest{Stages: []string{"a"}, Force: true})

	if got := resultByStage(t, results, "a").Status; got != StatusSucceeded {
		t.Errorf("a = %s, want succeeded under --force", got)
	}
	if a.actionCalls != 1 {
		t.Errorf("action invoked %d times, want 1", a.actionCalls)
	}
}

func TestRunIdempotentResume(t *testing.T) {
	a := &fakeStage{name: "a", stateful: true}
	b := &fakeStage{name: "b", deps: []string{"a"}, stateful: true}

	reg := NewRegistry()
	mustRegister(t, reg, a, b)

	first := runStages(t, reg, RunRequest{Stages: []string{"b"}})
	for _, r := range first {
		if r.Status != StatusSucceeded {
			t.Fatalf("first run: %s = %s, want succeeded", r.Stage, r.Status)
		}
	}

	second := runStages(t, reg, RunRequest{Stages: []string{"b"}})
	for _, r := range second {
		if r.Status != StatusSkipped {
			t.Errorf("second run: %s = %s, want skipped", r.Stage, r.Status)
		}
	}
	if a.actionCalls != 1 || b.actionCalls != 1 {
		t.Errorf("actions ran %d/%d times, want 1/1", a.actionCalls, b.actionCalls)
	}
}

func TestRunPostconditionViolation(t *testing.T) {
	a := okStage("a")
	a.post = CheckNotSatisfied // action "succeeds" but desired state absent

	reg := NewRegistry()
	mustRegister(t, reg, a)

	results := runStages(t, reg, RunRequest{Stages: []string{"a"}})

	r := resultByStage(t, results, "a")
	if r.Status != StatusFailed {
		t.Fatalf("a = %s, want failed", r.Status)
	}
	if r.Reason != "postcondition not met" {
		t.Errorf("reason = %q", r.Reason)
	}
}

func TestRunIndeterminatePostconditionFails(t *testing.T) {
	a := okStage("a")
	a.post = CheckIndeterminate

	reg := NewRegistry()
	mustRegister(t, reg, a)

	results := runStages(t, reg, RunRequest{Stages: []string{"a"}})
	if got := resultByStage(t, results, "a").Status; got != StatusFailed {
		t.Errorf("a = %s, want failed on indeterminate postcondition", got)
	}
}

func TestRunPreconditionErrorFailsStage(t *testing.T) {
	a := okStage("a")
	a.preErr = fmt.Errorf("probe exploded")

	reg := NewRegistry()
	mustRegister(t, reg, a)

	results := runStages(t, reg, RunRequest{Stages: []string{"a"}})
	r := resultByStage(t, results, "a")
	if r.Status != StatusFailed {
		t.Errorf("a = %s, want failed", r.Status)
	}
	if a.actionCalls != 0 {
		t.Error("action must not run when the precondition check errors")
	}
}

func TestRunDeclinedIsSkipped(t *testing.T) {
	a := okStage("a")
	a.actionErr = fmt.Errorf("install of flutter: %w", ErrDeclined)
	b := okStage("b", "a")

	reg := NewRegistry()
	mustRegister(t, reg, a, b)

	results := runStages(t, reg, RunRequest{Stages: []string{"b"}})

	if got := resultByStage(t, results, "a").Status; got != StatusSkipped {
		t.Errorf("a = %s, want skipped on decline", got)
	}
	// A skipped dependency does not abort dependents.
	if got := resultByStage(t, results, "b").Status; got != StatusSucceeded {
		t.Errorf("b = %s, want succeeded", got)
	}
}

func TestRunPromptInterruptAbortsRun(t *testing.T) {
	a := okStage("a")
	a.actionErr = fmt.Errorf("confirming: %w", prompt.ErrInterrupted)
	b := okStage("b")

	reg := NewRegistry()
	mustRegister(t, reg, a, b)

	results := runStages(t, reg, RunRequest{Stages: []string{"a", "b"}})

	if got := resultByStage(t, results, "a").Status; got != StatusAborted {
		t.Errorf("a = %s, want aborted", got)
	}
	if got := resultByStage(t, results, "b").Status; got != StatusAborted {
		t.Errorf("b = %s, want aborted (interrupt ends the run)", got)
	}
	if b.actionCalls != 0 {
		t.Error("stages after an interrupt must not run")
	}
}

func TestRunCancelledContextAbortsAll(t *testing.T) {
	a := okStage("a")
	b := okStage("b")

	reg := NewRegistry()
	mustRegister(t, reg, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := NewOrchestrator(reg, runlog.Discard{})
	results, err := orch.Run(ctx, RunRequest{Stages: []string{"a", "b"}}, &RunContext{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, r := range results {
		if r.Status != StatusAborted {
			t.Errorf("%s = %s, want aborted", r.Stage, r.Status)
		}
	}
	if a.actionCalls != 0 || b.actionCalls != 0 {
		t.Error("no action may run under a cancelled context")
	}
}

func TestRunResolutionErrorRunsNothing(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, okStage("x", "y"), okStage("y", "x"))

	orch := NewOrchestrator(reg, runlog.Discard{})
	results, err := orch.Run(context.Background(), RunRequest{Stages: []string{"x"}}, &RunContext{})
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if results != nil {
		t.Errorf("expected no results, got %v", results)
	}
}
