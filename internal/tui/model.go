// Package tui is the full-screen monitoring display. It renders the log
// store newest first and re-renders on every store change.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alfredjeanlab/guardian/internal/logstore"
	"github.com/alfredjeanlab/guardian/internal/model"
)

// Source is the part of the log store the display reads.
type Source interface {
	Entries() []model.LogEntry
	Cap() int
	Watch() (<-chan logstore.Change, func())
}

// Model holds the display state.
type Model struct {
	src     Source
	changes <-chan logstore.Change
	release func()

	entries []model.LogEntry
	cap     int
	link    LinkState
	stopped bool

	width  int
	height int
}

// LinkState describes the transport connection shown in the status pill.
type LinkState int

const (
	LinkUp LinkState = iota
	LinkDown
)

// changeMsg reports that the store changed.
type changeMsg struct{}

// closedMsg reports that the store was torn down.
type closedMsg struct{}

// LinkMsg updates the status pill. Send it with tea.Program.Send from
// transport callbacks.
type LinkMsg LinkState

// New registers a watch on src and returns the display model. The watch is
// released when the user quits or when Release is called.
func New(src Source) Model {
	changes, release := src.Watch()
	return Model{
		src:     src,
		changes: changes,
		release: release,
		entries: src.Entries(),
		cap:     src.Cap(),
	}
}

// Init starts waiting for store changes.
func (m Model) Init() tea.Cmd {
	return waitForChange(m.changes)
}

// waitForChange blocks until the store changes or the watch closes.
func waitForChange(ch <-chan logstore.Change) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return closedMsg{}
		}
		return changeMsg{}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.Release()
			return m, tea.Quit
		}

	case changeMsg:
		// Re-read the snapshot rather than apply the change, so dropped
		// changes never leave the view out of date.
		m.entries = m.src.Entries()
		return m, waitForChange(m.changes)

	case closedMsg:
		m.stopped = true
		m.entries = nil

	case LinkMsg:
		m.link = LinkState(msg)
	}
	return m, nil
}

// Release cancels the store watch. It is safe to call more than once.
func (m Model) Release() {
	if m.release != nil {
		m.release()
	}
}

// Entries returns the entries currently displayed.
func (m Model) Entries() []model.LogEntry {
	return m.entries
}
