// Package prompt provides interactive confirmation prompts.
package prompt

import (
	"os"

	"github.com/charmbracelet/huh"
	"github.com/cockroachdb/errors"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when a prompt is needed but input is not a terminal.
var ErrNotInteractive = errors.New("input is not a terminal")

// Prompter asks the user questions.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(message string, defaultYes bool) (bool, error)
}

// New returns a huh-backed Prompter when in is a terminal and a
// non-interactive one otherwise.
func New(in *os.File) Prompter {
	if in != nil && term.IsTerminal(int(in.Fd())) {
		return &HuhPrompter{}
	}

	return NonInteractive{}
}

// HuhPrompter renders prompts with huh.
type HuhPrompter struct{}

// Confirm implements Prompter.
func (*HuhPrompter) Confirm(message string, defaultYes bool) (bool, error) {
	confirmed := defaultYes

	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, errors.Wrap(err, "prompt failed")
	}

	return confirmed, nil
}

// NonInteractive refuses every prompt.
type NonInteractive struct{}

// Confirm implements Prompter.
func (NonInteractive) Confirm(string, bool) (bool, error) {
	return false, ErrNotInteractive
}

// Static answers every prompt with Answer. Useful with --yes and in tests.
type Static struct {
	Answer bool
}

// Confirm implements Prompter.
func (s Static) Confirm(string, bool) (bool, error) {
	return s.Answer, nil
}
