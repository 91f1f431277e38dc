// internal/tui/run.go
//
// A small Bubble Tea view for interactive task runs: a spinner while the
// task executes, then a styled status line. It follows The Elm Architecture:
// Model holds state, Update reacts to messages, View renders.

package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/qcforge/qcflow/internal/task"
)

var (
	labelStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// RunFunc executes the task and reports its outcome.
type RunFunc func() (task.Result, error)

type runDoneMsg struct {
	result task.Result
	err    error
}

// Model is the run view state.
type Model struct {
	spinner spinner.Model
	label   string
	run     RunFunc

	done   bool
	result task.Result
	err    error
}

// NewRunView builds the view for one labeled task run.
func NewRunView(label string, run RunFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return Model{spinner: s, label: label, run: run}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	run := m.run
	start := func() tea.Msg {
		result, err := run()
		return runDoneMsg{result: result, err: err}
	}
	return tea.Batch(m.spinner.Tick, start)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runDoneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = fmt.Errorf("tui: run interrupted")
			return m, tea.Quit
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.done {
		return fmt.Sprintf("%s %s\n", m.spinner.View(), labelStyle.Render("Running "+m.label))
	}
	if m.err != nil {
		return failureStyle.Render(fmt.Sprintf("%s failed: %v", m.label, m.err)) + "\n"
	}
	line := fmt.Sprintf("%s: %s", m.label, m.result.Status)
	if m.result.Message != "" {
		line += " (" + m.result.Message + ")"
	}
	return successStyle.Render(line) + "\n"
}

// Run drives the view to completion and returns the task outcome.
func Run(label string, run RunFunc) (task.Result, error) {
	program := tea.NewProgram(NewRunView(label, run))
	final, err := program.Run()
	if err != nil {
		return task.Result{Status: task.StatusFailed}, fmt.Errorf("tui: %w", err)
	}
	model, ok := final.(Model)
	if !ok {
		return task.Result{Status: task.StatusFailed}, fmt.Errorf("tui: unexpected final model")
	}
	return model.result, model.err
}
