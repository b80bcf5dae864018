// Package app hosts the root Bubble Tea model for the statusdeck TUI. It
// renders one agent run's live event log alongside the project's preview
// servers, both fed by watch subscriptions.
package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/statusdeck/statusdeck/internal/protocol"
	"github.com/statusdeck/statusdeck/internal/watch"
)

// Pane identifies which section has keyboard focus.
type Pane int

const (
	PaneRun Pane = iota
	PaneServers
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayErrors
)

// runChangedMsg and serversChangedMsg arrive whenever the corresponding
// subscription has new state to render.
type (
	runChangedMsg     struct{}
	serversChangedMsg struct{}
)

// Model is the root Bubble Tea model.
type Model struct {
	runs    *watch.Subscription[protocol.RunState]
	servers *watch.Subscription[protocol.ServerList] // nil when no project is tracked

	keys   KeyMap
	width  int
	height int

	pane    Pane
	overlay Overlay

	// scroll is the number of lines the event log is scrolled up from the
	// tail; zero means follow.
	scroll int
}

// New creates the root model. servers may be nil.
func New(runs *watch.Subscription[protocol.RunState], servers *watch.Subscription[protocol.ServerList]) Model {
	return Model{
		runs:    runs,
		servers: servers,
		keys:    DefaultKeyMap(),
	}
}

// Init starts listening for subscription updates.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitChange(m.runs.Changed(), runChangedMsg{})}
	if m.servers != nil {
		cmds = append(cmds, waitChange(m.servers.Changed(), serversChangedMsg{}))
	}
	return tea.Batch(cmds...)
}

// waitChange blocks until the subscription signals and re-delivers msg.
func waitChange(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return msg
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case runChangedMsg:
		return m, waitChange(m.runs.Changed(), runChangedMsg{})

	case serversChangedMsg:
		return m, waitChange(m.servers.Changed(), serversChangedMsg{})
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.overlay != OverlayNone {
		if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Errors) {
			m.overlay = OverlayNone
			return m, nil
		}
		if key.Matches(msg, m.keys.Quit) {
			return m.quit()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Tab):
		if m.servers != nil {
			if m.pane == PaneRun {
				m.pane = PaneServers
			} else {
				m.pane = PaneRun
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.pane == PaneRun {
			m.scroll = clamp(m.scroll+1, 0, m.maxScroll())
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.pane == PaneRun {
			m.scroll = clamp(m.scroll-1, 0, m.maxScroll())
		}
		return m, nil

	case key.Matches(msg, m.keys.Follow):
		m.scroll = 0
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.pane == PaneServers && m.servers != nil {
			m.servers.Refetch()
		} else {
			m.runs.Refetch()
		}
		return m, nil

	case key.Matches(msg, m.keys.Errors):
		m.overlay = OverlayErrors
		return m, nil
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.runs.Unsubscribe()
	if m.servers != nil {
		m.servers.Unsubscribe()
	}
	return m, tea.Quit
}

// maxScroll bounds scrolling so the top of the event log stays reachable
// but never overshoots.
func (m Model) maxScroll() int {
	n := len(m.runs.Events()) - m.logHeight()
	if n < 0 {
		return 0
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
