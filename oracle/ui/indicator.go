package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Indicator reports the start and the outcome of one in-flight operation.
type Indicator interface {
	Start(text string)
	Succeed(text string)
	Fail(text string)
}

// markers renders the success and failure symbols for a given writer.
type markers struct {
	ok   string
	fail string
	busy string
}

func newMarkers(out io.Writer) markers {
	r := lipgloss.NewRenderer(out)
	return markers{
		ok:   r.NewStyle().Foreground(lipgloss.Color("10")).Render("✔"),
		fail: r.NewStyle().Foreground(lipgloss.Color("9")).Render("✖"),
		busy: r.NewStyle().Foreground(lipgloss.Color("14")).Render("…"),
	}
}

// PlainIndicator writes one line per lifecycle event.
type PlainIndicator struct {
	out     io.Writer
	markers markers
}

// NewPlainIndicator creates a line-based indicator.
func NewPlainIndicator(out io.Writer) *PlainIndicator {
	return &PlainIndicator{out: out, markers: newMarkers(out)}
}

func (p *PlainIndicator) Start(text string) {
	fmt.Fprintf(p.out, "%s %s\n", p.markers.busy, text)
}

func (p *PlainIndicator) Succeed(text string) {
	fmt.Fprintf(p.out, "%s %s\n", p.markers.ok, text)
}

func (p *PlainIndicator) Fail(text string) {
	fmt.Fprintf(p.out, "%s %s\n", p.markers.fail, text)
}

// stopMsg replaces the spinner with its final line and ends the program.
type stopMsg struct {
	line string
}

type spinnerModel struct {
	spinner spinner.Model
	text    string
	final   string
	done    bool
}

func newSpinnerModel(text string) spinnerModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	return spinnerModel{spinner: s, text: text}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stopMsg:
		m.final = msg.line
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return m.final + "\n"
	}
	return m.spinner.View() + " " + m.text
}

// Spinner animates while a query is in flight. Succeed and Fail block until
// the animation goroutine has exited.
type Spinner struct {
	out     io.Writer
	markers markers

	mu   sync.Mutex
	prog *tea.Program
	done chan struct{}
}

// NewSpinner creates a Spinner drawing on out.
func NewSpinner(out io.Writer) *Spinner {
	return &Spinner{out: out, markers: newMarkers(out)}
}

func (s *Spinner) Start(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked("")

	s.prog = tea.NewProgram(newSpinnerModel(text),
		tea.WithInput(nil),
		tea.WithOutput(s.out),
		tea.WithoutSignalHandler())
	s.done = make(chan struct{})

	prog, done := s.prog, s.done
	go func() {
		defer close(done)
		_, _ = prog.Run()
	}()
}

func (s *Spinner) Succeed(text string) {
	s.stop(s.markers.ok + " " + text)
}

func (s *Spinner) Fail(text string) {
	s.stop(s.markers.fail + " " + text)
}

func (s *Spinner) stop(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prog == nil {
		fmt.Fprintln(s.out, line)
		return
	}
	s.stopLocked(line)
}

func (s *Spinner) stopLocked(line string) {
	if s.prog == nil {
		return
	}
	s.prog.Send(stopMsg{line: line})
	<-s.done
	s.prog, s.done = nil, nil
}

// Terminal bundles the selector and indicator used by a session.
type Terminal struct {
	Selector    Selector
	Indicator   Indicator
	Interactive bool

	close func() error
}

// New picks the terminal UI when both in and out are terminals and the
// line-based UI otherwise.
func New(in, out *os.File) *Terminal {
	if isTerminal(in) && isTerminal(out) {
		return &Terminal{
			Selector:    NewTeaSelector(in, out),
			Indicator:   NewSpinner(out),
			Interactive: true,
		}
	}
	sel := NewLineSelector(out)
	return &Terminal{
		Selector:  sel,
		Indicator: NewPlainIndicator(out),
		close:     sel.Close,
	}
}

// Close restores the terminal state.
func (t *Terminal) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
