package prompt

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
)

// Readline is a terminal Prompter. Options are numbered from 1 on screen.
type Readline struct {
	rl  *readline.Instance
	out io.Writer
}

// NewReadline creates a terminal prompter. historyFile may be empty.
func NewReadline(historyFile string) (*Readline, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("initializing prompt: %w", err)
	}
	return &Readline{rl: rl, out: rl.Stdout()}, nil
}

// Close releases the terminal.
func (p *Readline) Close() error {
	return p.rl.Close()
}

// Choose prints the numbered options and reads until a valid number is entered.
func (p *Readline) Choose(question string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no options for %q", question)
	}
	fmt.Fprintln(p.out, question)
	for i, opt := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}
	for {
		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(line)
		if convErr == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(p.out, "Enter a number between 1 and %d.\n", len(options))
	}
}

// Input prints the question and reads one line.
func (p *Readline) Input(question string) (string, error) {
	fmt.Fprintln(p.out, question)
	return p.readLine()
}

func (p *Readline) readLine() (string, error) {
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrAborted
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
