package prompt

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// Terminal is the interactive Interactor. Prompts block until the user
// responds; an interrupt surfaces as ErrInterrupted.
type Terminal struct{}

// NewTerminal creates a Terminal Interactor. It refuses to construct when
// stdin is not a TTY, so a misconfigured CI job fails up front instead of
// hanging on the first prompt.
func NewTerminal() (*Terminal, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("stdin is not a terminal; use --non-interactive with scripted answers")
	}
	return &Terminal{}, nil
}

func (t *Terminal) Confirm(id, label string) (bool, error) {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := p.Run()
	if err != nil {
		// promptui reports "no" as ErrAbort; only an interrupt is an error.
		if errors.Is(err, promptui.ErrInterrupt) {
			return false, ErrInterrupted
		}
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("prompt %q failed: %w", id, err)
	}
	return true, nil
}

func (t *Terminal) Text(id, label, def string) (string, error) {
	p := promptui.Prompt{
		Label:   label,
		Default: def,
	}
	result, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return "", ErrInterrupted
		}
		return "", fmt.Errorf("prompt %q failed: %w", id, err)
	}
	return result, nil
}

func (t *Terminal) Secret(id, label string) (string, error) {
	p := promptui.Prompt{
		Label:       label,
		Mask:        '*',
		HideEntered: true,
	}
	result, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return "", ErrInterrupted
		}
		return "", fmt.Errorf("prompt %q failed: %w", id, err)
	}
	return result, nil
}
