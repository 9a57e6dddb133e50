package prompt

import (
	"fmt"
	"strings"
)

// Scripted answers prompts from a pre-supplied map keyed by prompt
// identifier. It never blocks: a missing required answer is a
// MissingAnswerError.
type Scripted struct {
	answers map[string]string
}

// NewScripted creates a Scripted Interactor over the given answers.
func NewScripted(answers map[string]string) *Scripted {
	if answers == nil {
		answers = map[string]string{}
	}
	return &Scripted{answers: answers}
}

func (s *Scripted) Confirm(id, label string) (bool, error) {
	v, ok := s.answers[id]
	if !ok {
		return false, &MissingAnswerError{ID: id}
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "true", "1":
		return true, nil
	case "n", "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("scripted answer for %q is not a yes/no value: %q", id, v)
	}
}

func (s *Scripted) Text(id, label, def string) (string, error) {
	if v, ok := s.answers[id]; ok {
		return v, nil
	}
	if def != "" {
		return def, nil
	}
	return "", &MissingAnswerError{ID: id}
}

func (s *Scripted) Secret(id, label string) (string, error) {
	v, ok := s.answers[id]
	if !ok {
		return "", &MissingAnswerError{ID: id}
	}
	return v, nil
}
