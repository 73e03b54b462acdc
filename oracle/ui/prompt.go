package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

// LinePrompter reads one line of input after showing a prompt.
// *liner.State satisfies it.
type LinePrompter interface {
	Prompt(prompt string) (string, error)
}

// LineSelector is a numbered menu for terminals without cursor control
// and for piped input.
type LineSelector struct {
	prompter LinePrompter
	out      io.Writer
	closer   io.Closer
}

// NewLineSelector creates a LineSelector backed by liner on stdin.
func NewLineSelector(out io.Writer) *LineSelector {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &LineSelector{prompter: state, out: out, closer: state}
}

// NewLineSelectorWith creates a LineSelector around an arbitrary prompter.
func NewLineSelectorWith(prompter LinePrompter, out io.Writer) *LineSelector {
	return &LineSelector{prompter: prompter, out: out}
}

// Close restores the terminal.
func (s *LineSelector) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Select prints the numbered choices and reads until a valid answer arrives.
// The answer may be the number or the exact choice text.
func (s *LineSelector) Select(ctx context.Context, title string, choices []string) (int, error) {
	if len(choices) == 0 {
		return -1, fmt.Errorf("no choices to select from")
	}

	fmt.Fprintf(s.out, "? %s\n", title)
	for i, choice := range choices {
		fmt.Fprintf(s.out, "  %d) %s\n", i+1, choice)
	}

	prompt := fmt.Sprintf("Opción [1-%d]: ", len(choices))
	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		line, err := s.prompter.Prompt(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				return -1, ErrInterrupted
			}
			return -1, fmt.Errorf("failed to read selection: %w", err)
		}
		if idx, ok := parseChoice(strings.TrimSpace(line), choices); ok {
			return idx, nil
		}
		fmt.Fprintf(s.out, "Opción no válida: %q\n", strings.TrimSpace(line))
	}
}

func parseChoice(answer string, choices []string) (int, bool) {
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(choices) {
			return n - 1, true
		}
		return -1, false
	}
	for i, choice := range choices {
		if strings.EqualFold(answer, choice) {
			return i, true
		}
	}
	return -1, false
}
