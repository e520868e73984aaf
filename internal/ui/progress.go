// Package ui renders live batch progress in the terminal. It consumes
// the controller's event stream; it never touches the queue or the
// browser directly.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"foldbatch/internal/batch"
	"foldbatch/internal/model"
)

var (
	progressTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	progressMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	progressErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	progressOKStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	progressPanelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	progressActiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Bold(true)
)

type progressEventMsg batch.ProgressEvent

type eventsClosedMsg struct{}

type progressModel struct {
	events <-chan batch.ProgressEvent
	stop   func()

	spin      spinner.Model
	total     int
	done      int
	failed    int
	current   string
	lastLines []string
	run       *model.BatchRun
	finished  bool
	width     int
}

const progressLogLines = 8

func newProgressModel(events <-chan batch.ProgressEvent, total int, stop func()) progressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	return progressModel{
		events: events,
		stop:   stop,
		spin:   s,
		total:  total,
	}
}

func waitForEvent(events <-chan batch.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return progressEventMsg(ev)
	}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.events))
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.finished {
				return m, tea.Quit
			}
			if m.stop != nil {
				m.stop()
			}
			m.pushLine("stopping after current job...")
			return m, nil
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case progressEventMsg:
		m.apply(batch.ProgressEvent(msg))
		return m, waitForEvent(m.events)
	case eventsClosedMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *progressModel) apply(ev batch.ProgressEvent) {
	switch ev.Kind {
	case batch.EventJobStarted:
		if ev.Job != nil {
			m.current = ev.Job.JobName
		}
	case batch.EventJobCompleted:
		m.done++
		m.current = ""
	case batch.EventJobFailed:
		m.failed++
		m.current = ""
	case batch.EventBatchCompleted:
		m.run = ev.Run
		m.finished = true
		m.current = ""
	}
	if ev.Message != "" {
		m.pushLine(ev.Message)
	}
}

func (m *progressModel) pushLine(line string) {
	m.lastLines = append(m.lastLines, line)
	if len(m.lastLines) > progressLogLines {
		m.lastLines = m.lastLines[len(m.lastLines)-progressLogLines:]
	}
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(progressTitleStyle.Render("foldbatch"))
	b.WriteString("\n\n")

	processed := m.done + m.failed
	counter := fmt.Sprintf("%d/%d jobs", processed, m.total)
	if m.failed > 0 {
		counter += progressErrorStyle.Render(fmt.Sprintf("  %d failed", m.failed))
	}
	if m.finished {
		b.WriteString(progressOKStyle.Render("batch finished") + "  " + counter + "\n")
		if m.run != nil {
			b.WriteString(progressMutedStyle.Render(
				fmt.Sprintf("run %s: %d successful, %d failed", m.run.RunID, m.run.Successful, m.run.Failed)) + "\n")
		}
	} else {
		b.WriteString(m.spin.View() + " " + counter + "\n")
		if m.current != "" {
			b.WriteString(progressActiveStyle.Render("current: "+m.current) + "\n")
		}
	}

	if len(m.lastLines) > 0 {
		log := progressMutedStyle.Render(strings.Join(m.lastLines, "\n"))
		b.WriteString("\n" + progressPanelStyle.Render(log) + "\n")
	}

	if m.finished {
		b.WriteString("\n" + progressMutedStyle.Render("press q to exit") + "\n")
	} else {
		b.WriteString("\n" + progressMutedStyle.Render("press q to stop after the current job") + "\n")
	}
	return b.String()
}

// RunProgress drives the interactive progress display until the event
// stream closes. stop is invoked when the user asks to quit early.
func RunProgress(events <-chan batch.ProgressEvent, total int, stop func()) error {
	p := tea.NewProgram(newProgressModel(events, total, stop))
	_, err := p.Run()
	return err
}

// DrainPlain consumes the event stream without a TTY, printing one line
// per event. Used when stdout is not a terminal.
func DrainPlain(events <-chan batch.ProgressEvent, printf func(format string, args ...any)) {
	for ev := range events {
		if ev.Message != "" {
			printf("%s\n", ev.Message)
		}
	}
}
