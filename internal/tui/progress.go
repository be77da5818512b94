// internal/tui/progress.go
//
// Live progress view for a pinning run. It uses bubbletea, which follows The
// Elm Architecture: orchestrator events arrive as messages, Update folds them
// into the model, and View renders the current state.

package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/actionpin/internal/orchestrator"
	"github.com/kingrea/actionpin/internal/report"
)

const recentLimit = 8

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	countStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	pinnedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	recentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).MarginTop(1)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
)

// eventMsg carries one orchestrator event into the program.
type eventMsg orchestrator.Event

// doneMsg ends the program once the run has produced its summary.
type doneMsg struct {
	summary orchestrator.Summary
}

// Model is the progress view state.
type Model struct {
	spinner spinner.Model
	cancel  context.CancelFunc

	total       int
	reposDone   int
	current     string
	files       int
	pinned      int
	failed      int
	docFailures int
	recent      []string

	done        bool
	interrupted bool
}

// NewModel creates a progress view for a run over total repositories. cancel
// is invoked when the user presses ctrl+c.
func NewModel(total int, cancel context.CancelFunc) Model {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))),
	)
	return Model{spinner: s, cancel: cancel, total: total}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.interrupted {
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
			m.pushRecent(failedStyle.Render("interrupt requested, finishing in-flight lookups"))
		}
		return m, nil
	case eventMsg:
		m.apply(orchestrator.Event(msg))
		return m, nil
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) apply(e orchestrator.Event) {
	switch e.Kind {
	case orchestrator.EventRepositoryStarted:
		m.current = e.Repository
	case orchestrator.EventRepositoryFinished, orchestrator.EventNoWorkflows, orchestrator.EventRepositoryFailed:
		m.reposDone++
		m.files += e.Count
	case orchestrator.EventReferencePinned:
		m.pinned++
	case orchestrator.EventReferenceFailed:
		m.failed++
	case orchestrator.EventDocumentFailed:
		m.docFailures++
	}
	if line := strings.TrimSpace(report.FormatEvent(e)); line != "" {
		m.pushRecent(line)
	}
}

func (m *Model) pushRecent(line string) {
	m.recent = append(m.recent, line)
	if len(m.recent) > recentLimit {
		m.recent = m.recent[len(m.recent)-recentLimit:]
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		return ""
	}
	current := m.current
	if current == "" {
		current = "starting"
	}
	header := fmt.Sprintf("%s %s %s", m.spinner.View(), titleStyle.Render("Pinning"), current)
	counts := countStyle.Render(fmt.Sprintf("repositories %d/%d  files %d  ", m.reposDone, m.total, m.files)) +
		pinnedStyle.Render(fmt.Sprintf("pinned %d", m.pinned)) + "  " +
		failedStyle.Render(fmt.Sprintf("unresolved %d  file errors %d", m.failed, m.docFailures))

	lines := []string{header, counts}
	if len(m.recent) > 0 {
		lines = append(lines, "", recentStyle.Render(strings.Join(m.recent, "\n")))
	}
	footer := footerStyle.Render("ctrl+c stops after the current lookups")
	return boxStyle.Render(strings.Join(lines, "\n")) + "\n" + footer + "\n"
}

// RunFunc performs the run, reporting progress to obs.
type RunFunc func(ctx context.Context, obs orchestrator.Observer) orchestrator.Summary

// Run executes run while rendering progress to out. The summary is returned
// even if the terminal program fails; in that case the run simply continues
// without a view.
func Run(ctx context.Context, out io.Writer, total int, run RunFunc) (orchestrator.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(total, cancel), tea.WithOutput(out))
	result := make(chan orchestrator.Summary, 1)
	go func() {
		summary := run(ctx, orchestrator.ObserverFunc(func(e orchestrator.Event) {
			p.Send(eventMsg(e))
		}))
		result <- summary
		p.Send(doneMsg{summary: summary})
	}()

	_, err := p.Run()
	summary := <-result
	if err != nil {
		return summary, fmt.Errorf("tui: %w", err)
	}
	return summary, nil
}
