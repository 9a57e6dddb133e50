// Package prompt abstracts user interaction behind a three-operation
// interface with a terminal-backed implementation and a scripted one for
// non-interactive runs.
package prompt

import (
	"errors"
	"fmt"
)

// Interactor supplies answers to the prompts a stage raises. Every prompt
// carries a stable identifier so scripted runs can pre-supply the answer.
type Interactor interface {
	// Confirm asks a yes/no question.
	Confirm(id, label string) (bool, error)

	// Text asks for a free-form value, offering def as the default.
	Text(id, label, def string) (string, error)

	// Secret asks for a sensitive value. Implementations must never echo
	// or log the entered value.
	Secret(id, label string) (string, error)
}

// ErrInterrupted is returned when the user aborts a prompt with a terminal
// interrupt. The orchestrator treats it as a run-level abort, not a
// per-stage failure.
var ErrInterrupted = errors.New("prompt interrupted")

// MissingAnswerError is returned by the scripted Interactor when no answer
// exists for a required prompt. The owning stage fails deterministically
// instead of blocking.
type MissingAnswerError struct {
	ID string
}

func (e *MissingAnswerError) Error() string {
	return fmt.Sprintf("no scripted answer for prompt %q", e.ID)
}

// IsMissingAnswer reports whether err is a MissingAnswerError.
func IsMissingAnswer(err error) bool {
	var m *MissingAnswerError
	return errors.As(err, &m)
}
