package statusview

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultInterval is how often the live view refreshes.
const DefaultInterval = time.Second

type tickMsg time.Time

type snapshotMsg struct {
	snap      Snapshot
	scheduled bool // part of the tick chain; a manual refresh is not
}

// Model is the bubbletea model behind `talus-tally watch`.
type Model struct {
	fetch    func() Snapshot
	interval time.Duration
	snap     Snapshot
	loaded   bool
}

// NewModel returns a model that calls fetch every interval.
func NewModel(fetch func() Snapshot, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Model{fetch: fetch, interval: interval}
}

func (m Model) Init() tea.Cmd {
	return m.refresh(true)
}

func (m Model) refresh(scheduled bool) tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg { return snapshotMsg{snap: fetch(), scheduled: scheduled} }
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refresh(false)
		}
	case tickMsg:
		return m, m.refresh(true)
	case snapshotMsg:
		m.snap = msg.snap
		m.loaded = true
		if msg.scheduled {
			return m, m.tick()
		}
	}
	return m, nil
}

func (m Model) View() string {
	if !m.loaded {
		return "Probing backend...\n"
	}
	return Render(m.snap) + dimStyle.Render("q quit, r refresh") + "\n"
}

// Snapshot returns the last fetched snapshot.
func (m Model) Snapshot() Snapshot {
	return m.snap
}
