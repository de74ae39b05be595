package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/havenworks/pidl"
)

var (
	styleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	stylePending = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type taskStatus int

const (
	statusPending taskStatus = iota
	statusRunning
	statusDone
)

type dashboardEventMsg struct {
	event string
	args  []any
}

type dashboardDoneMsg struct{}

// dashboardModel is a Bubble Tea model tracking live task progress: an
// ordered task list, a per-task status map, and a completion count, driven
// by the pipeline's task_start/task_end events.
type dashboardModel struct {
	order    []string
	statuses map[string]taskStatus
	total    int
	done     int
	finished bool

	spin spinner.Model
	bar  progress.Model
}

func newDashboardModel(plan pidl.Plan) dashboardModel {
	m := dashboardModel{
		statuses: make(map[string]taskStatus),
		spin:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:      progress.New(progress.WithDefaultGradient()),
	}
	for _, wave := range plan {
		for _, name := range wave {
			m.statuses[name] = statusPending
			m.order = append(m.order, name)
			m.total++
		}
	}
	return m
}

func (m dashboardModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardEventMsg:
		switch msg.event {
		case "task_start":
			if len(msg.args) > 0 {
				if name, ok := msg.args[0].(string); ok {
					m.statuses[name] = statusRunning
				}
			}
		case "task_end":
			if len(msg.args) > 0 {
				if name, ok := msg.args[0].(string); ok {
					if m.statuses[name] != statusDone {
						m.done++
					}
					m.statuses[name] = statusDone
				}
			}
		}
		return m, nil
	case dashboardDoneMsg:
		m.finished = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m dashboardModel) View() string {
	var b strings.Builder
	for _, name := range m.order {
		switch m.statuses[name] {
		case statusDone:
			b.WriteString(styleDone.Render(fmt.Sprintf("  done     %s\n", name)))
		case statusRunning:
			b.WriteString(styleRunning.Render(fmt.Sprintf("%s running  %s\n", m.spin.View(), name)))
		default:
			b.WriteString(stylePending.Render(fmt.Sprintf("  pending  %s\n", name)))
		}
	}

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	b.WriteString("\n" + m.bar.ViewAs(pct) + "\n")

	if m.finished {
		b.WriteString("\ndone.\n")
	}

	return b.String()
}
