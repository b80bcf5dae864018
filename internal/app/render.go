package app

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/statusdeck/statusdeck/internal/protocol"
	"github.com/statusdeck/statusdeck/internal/theme"
	"github.com/statusdeck/statusdeck/internal/watch"
)

// chrome rows around the event log: status bar, run header, servers header
// and list, help line.
const chromeHeight = 6

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.overlay == OverlayErrors {
		return m.renderErrorsOverlay()
	}

	sections := []string{
		m.renderStatusBar(),
		m.renderRunHeader(),
		m.renderEventLog(),
	}
	if m.servers != nil {
		sections = append(sections, m.renderServers())
	}
	sections = append(sections, theme.StyleDimmed.Render(
		"  j/k:scroll  f:follow  tab:pane  r:refresh  e:errors  q:quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderStatusBar shows the connection mode, retry progress, and a pending
// error count.
func (m Model) renderStatusBar() string {
	width := m.width
	if width < 40 {
		width = 40
	}

	mode := m.runs.Mode()
	glyph := theme.ModeGlyph(mode.String())
	style := lipgloss.NewStyle().Foreground(theme.ModeColor(mode.String()))

	var connStr string
	switch mode {
	case watch.ModeStreaming:
		connStr = style.Render(glyph + " Live")
	case watch.ModeConnecting:
		connStr = style.Render(fmt.Sprintf("%s Connecting (attempt %d)", glyph, m.runs.RetryCount()+1))
	case watch.ModePolling:
		connStr = style.Render(glyph + " Polling — updates delayed")
	default:
		connStr = style.Render(glyph + " Disconnected")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr

	if n := len(m.allErrors()); n > 0 {
		label := fmt.Sprintf("%d error", n)
		if n > 1 {
			label += "s"
		}
		content += sep + theme.StyleError.Render(label+" (e)")
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) renderRunHeader() string {
	snap, ok := m.runs.Snapshot()
	if !ok {
		return theme.StyleDimmed.Render("  run " + m.runs.Resource())
	}

	glyph := theme.RunStatusGlyph(string(snap.Status))
	statusStr := lipgloss.NewStyle().
		Foreground(theme.RunStatusColor(string(snap.Status))).
		Render(glyph + " " + string(snap.Status))

	header := theme.StyleHeader.Render("run "+snap.ID) + "  " + statusStr
	if snap.Model != "" {
		header += "  " + theme.StyleDimmed.Render(snap.Model)
	}
	if snap.ExitCode != nil && *snap.ExitCode != 0 {
		header += "  " + theme.StyleError.Render(fmt.Sprintf("exit %d", *snap.ExitCode))
	}
	return header
}

// logHeight is the number of event lines that fit on screen.
func (m Model) logHeight() int {
	h := m.height - chromeHeight
	if m.servers != nil {
		if list, ok := m.servers.Snapshot(); ok {
			h -= len(list.Servers)
		}
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) renderEventLog() string {
	events := m.runs.Events()
	height := m.logHeight()

	end := len(events) - m.scroll
	if end > len(events) {
		end = len(events)
	}
	start := end - height
	if start < 0 {
		start = 0
	}

	lines := make([]string, 0, height+1)
	if len(events) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  waiting for events..."))
	}
	for _, ev := range events[start:end] {
		lines = append(lines, "  "+renderEvent(ev))
	}
	if m.scroll > 0 {
		lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf("  ↓ %d more (f to follow)", m.scroll)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderEvent formats a single stream event as one log line. Unknown types
// render dimmed rather than disappearing.
func renderEvent(ev watch.Event) string {
	var msg protocol.StreamMessage
	if json.Unmarshal(ev.Raw, &msg) != nil {
		return theme.StyleDimmed.Render("· " + ev.Type)
	}

	switch msg.Type {
	case protocol.MsgLog, protocol.MsgServerOutput:
		var p protocol.LogPayload
		if json.Unmarshal(msg.Payload, &p) != nil {
			return theme.StyleDimmed.Render("· " + ev.Type)
		}
		color := theme.ColorStdout
		if p.Stream == "stderr" {
			color = theme.ColorStderr
		}
		return lipgloss.NewStyle().Foreground(color).Render(p.Line)

	case protocol.MsgToolCall:
		var p protocol.ToolCallPayload
		if json.Unmarshal(msg.Payload, &p) != nil {
			return theme.StyleDimmed.Render("· " + ev.Type)
		}
		return lipgloss.NewStyle().Foreground(theme.ColorToolCall).Render("⚙ " + p.Tool)

	case protocol.MsgStatus:
		var p protocol.StatusPayload
		if json.Unmarshal(msg.Payload, &p) != nil {
			return theme.StyleDimmed.Render("· " + ev.Type)
		}
		return lipgloss.NewStyle().
			Foreground(theme.RunStatusColor(string(p.Status))).
			Render("status → " + string(p.Status))

	case protocol.MsgCompleted:
		return lipgloss.NewStyle().Foreground(theme.ColorCompleted).Render("✓ run completed")

	case protocol.MsgError:
		var p protocol.ErrorPayload
		if json.Unmarshal(msg.Payload, &p) != nil {
			return theme.StyleDimmed.Render("· " + ev.Type)
		}
		return theme.StyleError.Render("✗ " + p.Message)

	case protocol.MsgServerStarted:
		return lipgloss.NewStyle().Foreground(theme.ColorServerRunning).Render("▲ server started")

	case protocol.MsgServerStopped:
		return theme.StyleDimmed.Render("▼ server stopped")
	}

	return theme.StyleDimmed.Render("· " + ev.Type)
}

func (m Model) renderServers() string {
	header := theme.StyleHeader.Render("servers")
	if m.pane == PaneServers {
		header = theme.StyleHeader.Render("servers") + theme.StyleDimmed.Render("  [focused]")
	}
	lines := []string{header}

	list, ok := m.servers.Snapshot()
	if !ok || len(list.Servers) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  none running"))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, srv := range list.Servers {
		statusStr := lipgloss.NewStyle().
			Foreground(theme.ServerStatusColor(string(srv.Status))).
			Render(string(srv.Status))
		line := fmt.Sprintf("  %-16s %s", srv.Name, statusStr)
		if srv.URL != "" {
			line += "  " + theme.StyleDimmed.Render(srv.URL)
		}
		lines = append(lines, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// allErrors merges the per-subscription error maps; server keys win on
// collision since both default keys are distinct in practice.
func (m Model) allErrors() map[string]string {
	merged := make(map[string]string)
	for k, v := range m.runs.Errors() {
		merged[k] = v
	}
	if m.servers != nil {
		for k, v := range m.servers.Errors() {
			merged[k] = v
		}
	}
	return merged
}

func (m Model) renderErrorsOverlay() string {
	errs := m.allErrors()

	var lines []string
	lines = append(lines, theme.StyleHeader.Render("Errors"))
	if len(errs) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  none"))
	} else {
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("  %s: %s",
				theme.StyleDimmed.Render(k), theme.StyleError.Render(errs[k])))
		}
	}
	lines = append(lines, "")
	lines = append(lines, theme.StyleDimmed.Render("esc to close"))

	box := theme.StyleBorder.Padding(1, 2).Render(strings.Join(lines, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
