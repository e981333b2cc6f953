package ui

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrInterrupted is returned when the user quits the spinner with ctrl+c.
var ErrInterrupted = errors.New("interrupted")

// SpinnerModel shows a spinner until a spinnerDoneMsg arrives.
type SpinnerModel struct {
	spinner  spinner.Model
	message  string
	quitting bool
	done     bool
	result   string
	err      error
}

func NewSpinner(message string) SpinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)
	return SpinnerModel{spinner: s, message: message}
}

func (m SpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m SpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case spinnerDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m SpinnerModel) View() string {
	switch {
	case m.quitting:
		return ""
	case m.done && m.err != nil:
		return RenderStatus("error", m.err.Error()) + "\n"
	case m.done:
		return RenderStatus("success", m.result) + "\n"
	}
	return "  " + m.spinner.View() + " " + WhiteStyle.Render(m.message) + "\n"
}

type spinnerDoneMsg struct {
	result string
	err    error
}

// isTerminal reports whether stdout is a character device.
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// RunWithSpinner runs fn while a spinner shows message, then prints the
// result line. Without a terminal it runs fn and prints only the result.
func RunWithSpinner(message string, fn func() (string, error)) (string, error) {
	if !isTerminal() {
		result, err := fn()
		if err != nil {
			fmt.Println(RenderStatus("error", err.Error()))
			return "", err
		}
		fmt.Println(RenderStatus("success", result))
		return result, nil
	}

	p := tea.NewProgram(NewSpinner(message))
	go func() {
		result, err := fn()
		p.Send(spinnerDoneMsg{result: result, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return "", err
	}
	m := final.(SpinnerModel)
	if m.quitting {
		return "", ErrInterrupted
	}
	return m.result, m.err
}
