// Package tui renders the live watch dashboard for a supervised session and
// guards interactive terminal state around agent invocations. The dashboard
// is a pure projection: it re-collects a status snapshot on a fixed tick and
// never writes to the session's files.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/eldris/minder/internal/state"
	"github.com/eldris/minder/internal/status"
)

// DefaultWatchInterval is the default re-collection cadence.
const DefaultWatchInterval = 2 * time.Second

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)
)

type tickMsg time.Time

// WatchModel is the bubbletea model for minder status --watch.
type WatchModel struct {
	store    *state.Store
	interval time.Duration
	bar      progress.Model
	snap     status.Snapshot
	quitting bool
}

// NewWatchModel creates a watch model over the given store, collecting an
// initial snapshot immediately.
func NewWatchModel(store *state.Store, interval time.Duration) WatchModel {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	bar := progress.New(
		progress.WithGradient("#00ffff", "#00ff00"),
		progress.WithWidth(40),
	)
	return WatchModel{
		store:    store,
		interval: interval,
		bar:      bar,
		snap:     status.Collect(store),
	}
}

// Snapshot returns the model's current snapshot.
func (m WatchModel) Snapshot() status.Snapshot {
	return m.snap
}

// Init starts the refresh tick.
func (m WatchModel) Init() tea.Cmd {
	return tick(m.interval)
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles key presses and refresh ticks.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.snap = status.Collect(m.store)
		return m, tick(m.interval)
	}
	return m, nil
}

// View renders the dashboard.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("minder"))
	b.WriteString("  ")
	b.WriteString(phaseBadge(m.snap.Phase))
	b.WriteString("\n")

	if m.snap.LedgerErr != nil {
		// Mid-write ledger while polling: a display gap, not a failure.
		b.WriteString(dimStyle.Render("ledger unreadable, retrying..."))
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Progress"))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.snap.Progress))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d/%d tasks", m.snap.Passing, m.snap.Total)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  ·  iteration %d", m.snap.Iterations())))
	b.WriteString("\n")

	if len(m.snap.Tasks) > 0 {
		b.WriteString(sectionStyle.Render("Tasks"))
		b.WriteString("\n")
		for _, t := range m.snap.Tasks {
			marker := dimStyle.Render("·")
			if t.Passes {
				marker = passStyle.Render("✓")
			}
			b.WriteString(fmt.Sprintf(" %s %s %s\n",
				marker,
				labelStyle.Render(fmt.Sprintf("%3d", t.ID)),
				truncate(t.Description, 70)))
		}
	}

	if len(m.snap.Tail) > 0 {
		b.WriteString(sectionStyle.Render("Latest transcript"))
		b.WriteString("\n")
		for _, line := range m.snap.Tail {
			b.WriteString(dimStyle.Render(" " + truncate(line, 100)))
			b.WriteString("\n")
		}
	}

	b.WriteString(footerStyle.Render(
		footerKeyStyle.Render("q") + dimStyle.Render(" quit")))
	b.WriteString("\n")

	return b.String()
}

func phaseBadge(phase string) string {
	switch phase {
	case status.PhaseComplete:
		return passStyle.Render("✓ COMPLETE")
	case status.PhaseWorking:
		return labelStyle.Render("● WORKING")
	case status.PhaseNoProgress:
		return warnStyle.Render("⚠ NO PROGRESS")
	case status.PhaseStalled:
		return failStyle.Render("✗ STALLED")
	default:
		return dimStyle.Render("○ NOT STARTED")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
