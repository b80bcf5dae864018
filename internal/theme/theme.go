// Package theme provides the Lip Gloss color palette and reusable styles
// for the statusdeck TUI. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Run status colors.
var (
	ColorQueued    = lipgloss.Color("#7c3aed")
	ColorRunning   = lipgloss.Color("#2563eb")
	ColorCompleted = lipgloss.Color("#16a34a")
	ColorFailed    = lipgloss.Color("#dc2626")
	ColorCancelled = lipgloss.Color("#854d0e")
	ColorDefault   = lipgloss.Color("#9ca3af")
)

// Connection mode colors.
var (
	ColorStreaming    = lipgloss.Color("#22c55e")
	ColorConnecting   = lipgloss.Color("#d97706")
	ColorPolling      = lipgloss.Color("#06b6d4")
	ColorDisconnected = lipgloss.Color("#4b5563")
)

// Preview server colors.
var (
	ColorServerStarting = lipgloss.Color("#7c3aed")
	ColorServerRunning  = lipgloss.Color("#22c55e")
	ColorServerStopped  = lipgloss.Color("#6b7280")
	ColorServerErrored  = lipgloss.Color("#dc2626")
)

// Log stream colors.
var (
	ColorStdout   = lipgloss.Color("#d1d5db")
	ColorStderr   = lipgloss.Color("#f87171")
	ColorToolCall = lipgloss.Color("#d97706")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// RunStatusColor returns the Lip Gloss color for a run status string.
func RunStatusColor(status string) lipgloss.Color {
	switch status {
	case "queued":
		return ColorQueued
	case "running":
		return ColorRunning
	case "completed":
		return ColorCompleted
	case "failed":
		return ColorFailed
	case "cancelled":
		return ColorCancelled
	default:
		return ColorDefault
	}
}

// ModeColor returns the color for a connection mode string.
func ModeColor(mode string) lipgloss.Color {
	switch mode {
	case "streaming":
		return ColorStreaming
	case "connecting":
		return ColorConnecting
	case "polling":
		return ColorPolling
	default:
		return ColorDisconnected
	}
}

// ModeGlyph returns a Unicode glyph for a connection mode string.
func ModeGlyph(mode string) string {
	switch mode {
	case "streaming":
		return "●"
	case "connecting":
		return "◌"
	case "polling":
		return "◍"
	default:
		return "○"
	}
}

// ServerStatusColor returns the color for a preview server status string.
func ServerStatusColor(status string) lipgloss.Color {
	switch status {
	case "starting":
		return ColorServerStarting
	case "running":
		return ColorServerRunning
	case "stopped":
		return ColorServerStopped
	case "errored":
		return ColorServerErrored
	default:
		return ColorDefault
	}
}

// RunStatusGlyph returns a Unicode glyph for a run status string.
func RunStatusGlyph(status string) string {
	switch status {
	case "queued":
		return "◎"
	case "running":
		return "●>"
	case "completed":
		return "✓"
	case "failed":
		return "✗"
	case "cancelled":
		return "◌"
	default:
		return "·"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleError = lipgloss.NewStyle().
		Foreground(ColorDanger)
)
