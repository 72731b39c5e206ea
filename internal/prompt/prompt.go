// Package prompt supplies the caller decisions that repairs and rule building need.
// Every call blocks until the user answers; there is no timeout.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAborted is returned when the user cancels a prompt (Ctrl-C or end of input).
var ErrAborted = errors.New("prompt aborted")

// Prompter asks the user for decisions.
type Prompter interface {
	// Choose presents options and returns the 0-based index of the selected one.
	Choose(question string, options []string) (int, error)

	// Input asks a free-form question and returns the trimmed answer.
	Input(question string) (string, error)
}

// Confirm asks a yes/no question.
func Confirm(p Prompter, question string) (bool, error) {
	i, err := p.Choose(question, []string{"Yes", "No"})
	if err != nil {
		return false, err
	}
	return i == 0, nil
}

// List asks for a comma-separated answer and returns the non-empty items.
func List(p Prompter, question string) ([]string, error) {
	answer, err := p.Input(question)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, part := range strings.Split(answer, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// Scripted replays canned answers. Choices and inputs are consumed from separate queues.
// It is used by tests and by non-interactive commands.
type Scripted struct {
	Choices []int
	Inputs  []string

	// Asked records every question in order.
	Asked []string
}

// Choose returns the next scripted choice.
func (s *Scripted) Choose(question string, options []string) (int, error) {
	s.Asked = append(s.Asked, question)
	if len(s.Choices) == 0 {
		return 0, fmt.Errorf("%w: no scripted choice for %q", ErrAborted, question)
	}
	c := s.Choices[0]
	s.Choices = s.Choices[1:]
	if c < 0 || c >= len(options) {
		return 0, fmt.Errorf("scripted choice %d out of range for %q", c, question)
	}
	return c, nil
}

// Input returns the next scripted input.
func (s *Scripted) Input(question string) (string, error) {
	s.Asked = append(s.Asked, question)
	if len(s.Inputs) == 0 {
		return "", fmt.Errorf("%w: no scripted input for %q", ErrAborted, question)
	}
	in := s.Inputs[0]
	s.Inputs = s.Inputs[1:]
	return strings.TrimSpace(in), nil
}
