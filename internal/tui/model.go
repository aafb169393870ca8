package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// maxLogLines bounds the warning and info lines kept on screen.
const maxLogLines = 8

// rowState is the lifecycle state of one stage row.
type rowState int

const (
	rowWorking rowState = iota
	rowDone
	rowFailed
)

// StageRow is one stage shown by the model.
type StageRow struct {
	Name    string
	Done    int
	Total   int
	Item    string
	Summary string
	state   rowState
}

// Options configures a Model.
type Options struct {
	Title string
	// Cancel is called on the first ctrl+c or q while work is running.
	Cancel func()
	// AutoQuit exits the program as soon as MsgFinished arrives.
	AutoQuit bool
}

// Model renders stage progress: one row per stage, a progress bar for the
// running stage, and the latest log lines.
type Model struct {
	Title      string
	Stages     []*StageRow
	Logs       []MsgLog
	Warnings   int
	Errors     int
	Spinner    spinner.Model
	Progress   progress.Model
	Width      int
	StartTime  time.Time
	Now        time.Time
	Finished   bool
	Cancelling bool
	Err        error
	Keys       KeyMap

	opts Options
}

// NewModel creates a model for one run.
func NewModel(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = styleRowWorking
	now := time.Now()
	return Model{
		Title:     opts.Title,
		Spinner:   s,
		Progress:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		Width:     80,
		StartTime: now,
		Now:       now,
		Keys:      DefaultKeyMap(),
		opts:      opts,
	}
}

// Init starts the spinner and tick timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, tickCmd())
}

// tickCmd returns a command that sends a tick every second.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return MsgTick{Time: t}
	})
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Progress.Width = max(10, min(40, msg.Width/3))

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case MsgTick:
		m.Now = msg.Time
		if m.Finished {
			return m, nil
		}
		return m, tickCmd()

	case MsgStageStart:
		m.Stages = append(m.Stages, &StageRow{Name: msg.Stage, Total: msg.Total})
	case MsgStageProgress:
		if r := m.row(msg.Stage); r != nil {
			r.Done, r.Total, r.Item = msg.Done, msg.Total, msg.Item
		}
	case MsgStageDone:
		if r := m.row(msg.Stage); r != nil {
			r.state = rowDone
			r.Summary = msg.Summary
			r.Item = ""
		}
	case MsgLog:
		switch msg.Level {
		case LevelWarn:
			m.Warnings++
		case LevelError:
			m.Errors++
		}
		m.Logs = append(m.Logs, msg)
		if len(m.Logs) > maxLogLines {
			m.Logs = m.Logs[len(m.Logs)-maxLogLines:]
		}
	case MsgFinished:
		m.Finished = true
		m.Err = msg.Err
		if msg.Err != nil {
			for _, r := range m.Stages {
				if r.state == rowWorking {
					r.state = rowFailed
				}
			}
		}
		if m.opts.AutoQuit {
			return m, tea.Quit
		}
	}
	return m, nil
}

// handleKey cancels running work on the first ctrl+c or q and quits on the
// second, or at once when the work has finished.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.Finished && key.Matches(msg, m.Keys.Cancel, m.Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Cancel):
		m.Cancelling = true
		m.Keys.Cancel.SetEnabled(false)
		m.Keys.Quit.SetEnabled(true)
		if m.opts.Cancel != nil {
			m.opts.Cancel()
		}
	}
	return m, nil
}

// row returns the newest row for stage.
func (m Model) row(stage string) *StageRow {
	for i := len(m.Stages) - 1; i >= 0; i-- {
		if m.Stages[i].Name == stage {
			return m.Stages[i]
		}
	}
	return nil
}

// View renders the status bar, stage rows and log lines.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.statusBar())
	b.WriteString("\n")
	for _, r := range m.Stages {
		b.WriteString(m.stageLine(r))
		b.WriteString("\n")
	}
	for _, l := range m.Logs {
		switch l.Level {
		case LevelWarn:
			b.WriteString(styleWarn.Render("  " + iconWarn + " " + l.Text))
		case LevelError:
			b.WriteString(styleError.Render("  " + iconFailed + " " + l.Text))
		default:
			b.WriteString(styleInfo.Render("    " + l.Text))
		}
		b.WriteString("\n")
	}
	if m.Finished {
		return b.String()
	}
	if m.Cancelling {
		b.WriteString(styleHint.Render("  cancelling after the current item"))
		b.WriteString("\n")
	}
	b.WriteString(footer(m.Keys.Cancel, m.Keys.Quit))
	b.WriteString("\n")
	return b.String()
}

func (m Model) statusBar() string {
	elapsed := m.Now.Sub(m.StartTime).Round(time.Second)
	parts := []string{
		styleStatusLabel.Render("wzpatch"),
		styleStatusValue.Render(m.Title),
		styleStatusValue.Render(elapsed.String()),
	}
	if m.Warnings > 0 {
		parts = append(parts, styleWarn.Render(fmt.Sprintf("%d warning(s)", m.Warnings)))
	}
	return styleStatusBar.Render(strings.Join(parts, "  "))
}

func (m Model) stageLine(r *StageRow) string {
	name := fmt.Sprintf("%-8s", r.Name)
	switch r.state {
	case rowDone:
		return styleRowDone.Render(" "+iconDone+" "+name) + " " + styleRowNormal.Render(r.Summary)
	case rowFailed:
		return styleRowFailed.Render(" " + iconFailed + " " + name)
	}
	line := " " + m.Spinner.View() + " " + styleRowWorking.Render(name)
	if r.Total > 0 {
		pct := float64(r.Done) / float64(r.Total)
		line += " " + m.Progress.ViewAs(min(pct, 1)) + fmt.Sprintf(" %3.0f%%", 100*min(pct, 1))
	} else {
		line += " " + styleRowNormal.Render(iconWaiting)
	}
	if r.Item != "" {
		line += "  " + styleDetail.Render(r.Item)
	}
	return line
}
