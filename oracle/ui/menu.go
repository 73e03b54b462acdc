package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrInterrupted is returned when the operator aborts the menu.
var ErrInterrupted = errors.New("selection interrupted")

// Selector presents a closed list of choices and returns the chosen index.
type Selector interface {
	Select(ctx context.Context, title string, choices []string) (int, error)
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	hintStyle     = lipgloss.NewStyle().Faint(true)
)

// menuModel is a single-select list. chosen stays -1 until enter is pressed.
type menuModel struct {
	title   string
	choices []string
	cursor  int
	chosen  int
	aborted bool
}

func newMenuModel(title string, choices []string) menuModel {
	return menuModel{title: title, choices: choices, chosen: -1}
}

func (m menuModel) Init() tea.Cmd {
	return nil
}

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	case "up", "k", "shift+tab":
		m.cursor--
		if m.cursor < 0 {
			m.cursor = len(m.choices) - 1
		}
	case "down", "j", "tab":
		m.cursor++
		if m.cursor >= len(m.choices) {
			m.cursor = 0
		}
	case "enter":
		m.chosen = m.cursor
		return m, tea.Quit
	}
	return m, nil
}

func (m menuModel) View() string {
	question := questionStyle.Render("?") + " " + titleStyle.Render(m.title)
	if m.chosen >= 0 {
		return question + " " + answerStyle.Render(m.choices[m.chosen]) + "\n"
	}
	if m.aborted {
		return question + "\n"
	}

	var b strings.Builder
	b.WriteString(question + " " + hintStyle.Render("(usa las flechas)") + "\n")
	for i, choice := range m.choices {
		if i == m.cursor {
			b.WriteString(cursorStyle.Render("❯ " + choice))
		} else {
			b.WriteString("  " + choice)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// TeaSelector is an arrow-key menu for interactive terminals.
type TeaSelector struct {
	in  io.Reader
	out io.Writer
}

// NewTeaSelector creates a menu reading keys from in and drawing on out.
func NewTeaSelector(in io.Reader, out io.Writer) *TeaSelector {
	return &TeaSelector{in: in, out: out}
}

// Select runs the menu until a choice is made or the operator aborts.
func (s *TeaSelector) Select(ctx context.Context, title string, choices []string) (int, error) {
	if len(choices) == 0 {
		return -1, fmt.Errorf("no choices to select from")
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithOutput(s.out)}
	if s.in != nil {
		opts = append(opts, tea.WithInput(s.in))
	}

	final, err := tea.NewProgram(newMenuModel(title, choices), opts...).Run()
	if err != nil {
		return -1, fmt.Errorf("menu failed: %w", err)
	}
	m, ok := final.(menuModel)
	if !ok || m.aborted || m.chosen < 0 {
		return -1, ErrInterrupted
	}
	return m.chosen, nil
}
