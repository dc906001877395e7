package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Status colors, degraded automatically by termenv's color profile
// detection when stdout can't render 256-color ANSI.
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "#0060CC", Dark: "#4EA1FF"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#A35A00", Dark: "#F2A340"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "#1E7D32", Dark: "#5FD37A"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#B3261E", Dark: "#FF6B60"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#6B6B6B", Dark: "#9B9B9B"}
)

var (
	StatusStyle = lipgloss.NewStyle().Bold(true)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail).Bold(true)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
)

// RenderStatus colors a task status string for terminal display. When
// color is disabled it returns the plain label unchanged, keeping
// piped output machine-readable.
func RenderStatus(status string) string {
	if !ShouldUseColor() {
		return status
	}
	switch status {
	case "done":
		return PassStyle.Render(status)
	case "blocked", "canceled":
		return FailStyle.Render(status)
	case "in_progress", "assigned":
		return StatusStyle.Foreground(ColorAccent).Render(status)
	default:
		return MutedStyle.Render(status)
	}
}

// ColorProfile reports the terminal's color capability as detected by
// termenv. RenderStatus does not consult it; it uses ShouldUseColor.
func ColorProfile() termenv.Profile {
	return termenv.ColorProfile()
}
