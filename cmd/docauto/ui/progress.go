// Package ui implements the live progress display shown with --progress.
// The runner publishes events through Program.Send; the model keeps a
// rolling tail of recent file results above a progress bar.
package ui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	history "docauto/internal/progress"
	"docauto/internal/runner"
)

const maxRecent = 8

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// EventMsg wraps a runner event for the program.
type EventMsg struct {
	Event runner.Event
}

// Model is the live progress display.
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	total     int
	done      int
	processed int
	failed    int
	skipped   int

	active  []string
	recent  []string
	summary *runner.Summary

	cancel    context.CancelFunc
	cancelled bool
	width     int
}

// New builds the display model. cancel requests a graceful stop of the
// run when the user quits the display.
func New(cancel context.CancelFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 60

	return Model{
		spinner: sp,
		bar:     bar,
		cancel:  cancel,
		width:   80,
	}
}

// NewProgram wraps the model in a bubbletea program. Events are fed in
// with Send from the runner's OnEvent callback.
func NewProgram(cancel context.CancelFunc) *tea.Program {
	return tea.NewProgram(New(cancel))
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.cancelled {
				// A second request force-exits like a second SIGINT.
				os.Exit(1)
			}
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := msg.Width - 8
		if w > 60 {
			w = 60
		}
		if w > 0 {
			m.bar.Width = w
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		return m.applyEvent(msg.Event)
	}
	return m, nil
}

func (m Model) applyEvent(ev runner.Event) (tea.Model, tea.Cmd) {
	switch ev.Type {
	case runner.EventRunStarted:
		m.total = ev.Summary.FilesTotal

	case runner.EventFileStarted:
		m.active = append(m.active, ev.Path)

	case runner.EventFileFinished:
		m.active = removePath(m.active, ev.Path)
		m.done++
		switch ev.Status {
		case history.FileStatusFailed:
			m.failed++
		case history.FileStatusSkipped:
			m.skipped++
		default:
			m.processed++
		}
		m.recent = append(m.recent, fileLine(ev))
		if len(m.recent) > maxRecent {
			m.recent = m.recent[len(m.recent)-maxRecent:]
		}

	case runner.EventRunFinished:
		s := ev.Summary
		m.summary = &s
		return m, tea.Quit
	}
	return m, nil
}

// View renders the display.
func (m Model) View() string {
	var sb strings.Builder

	if m.summary != nil {
		for _, line := range m.recent {
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n" + summaryLine(*m.summary) + "\n")
		return sb.String()
	}

	header := fmt.Sprintf("%s documenting %d/%d files", m.spinner.View(), m.done, m.total)
	if m.cancelled {
		header = fmt.Sprintf("%s finishing in-flight files", m.spinner.View())
	}
	if m.failed > 0 {
		header += failStyle.Render(fmt.Sprintf("  %d failed", m.failed))
	}
	sb.WriteString(header + "\n")

	frac := 0.0
	if m.total > 0 {
		frac = float64(m.done) / float64(m.total)
	}
	sb.WriteString(m.bar.ViewAs(frac) + "\n\n")

	for _, path := range m.active {
		sb.WriteString(mutedStyle.Render("> "+path) + "\n")
	}
	for _, line := range m.recent {
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + mutedStyle.Render("q to stop") + "\n")
	return sb.String()
}

func fileLine(ev runner.Event) string {
	switch ev.Status {
	case history.FileStatusFailed:
		line := failStyle.Render("x " + ev.Path)
		if ev.Err != nil {
			line += mutedStyle.Render("  " + ev.Err.Error())
		}
		return line
	case history.FileStatusSkipped:
		return mutedStyle.Render("- " + ev.Path + " (skipped)")
	default:
		return okStyle.Render("+ " + ev.Path)
	}
}

func summaryLine(s runner.Summary) string {
	line := s.String()
	if s.FilesFailed > 0 {
		return failStyle.Render(fmt.Sprintf("%s, %d failed", line, s.FilesFailed))
	}
	return okStyle.Render(line)
}

func removePath(paths []string, path string) []string {
	for i, p := range paths {
		if p == path {
			return append(paths[:i], paths[i+1:]...)
		}
	}
	return paths
}
