// Package styles contains Lip Gloss style definitions.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette. Each color adapts to light and dark terminals.
var (
	TextPrimaryColor     = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#E6EDF3"}
	TextDescriptionColor = lipgloss.AdaptiveColor{Light: "#57606A", Dark: "#9DA7B3"}
	TextMutedColor       = lipgloss.AdaptiveColor{Light: "#8C959F", Dark: "#6E7681"}
	BorderDefaultColor   = lipgloss.AdaptiveColor{Light: "#D0D7DE", Dark: "#30363D"}

	StatusOnColor         = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	StatusWaitingColor    = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"}
	StatusRecoveringColor = lipgloss.AdaptiveColor{Light: "#BC4C00", Dark: "#F0883E"}
	StatusRecoveredColor  = lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#58A6FF"}
	StatusOffColor        = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}
)

// StatusColor picks the color for a status line such as "ON" or "RECOVERING... (1/3)".
func StatusColor(status string) lipgloss.TerminalColor {
	switch {
	case status == "OFF":
		return StatusOffColor
	case strings.HasPrefix(status, "RECOVERING"):
		return StatusRecoveringColor
	case strings.HasPrefix(status, "RECOVERED"):
		return StatusRecoveredColor
	case status == "WAITING", strings.HasPrefix(status, "PAUSED"):
		return StatusWaitingColor
	}
	return StatusOnColor
}
