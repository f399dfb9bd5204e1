package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Adaptive so the review screen reads on light terminals too.
var (
	accent  = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	muted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	good    = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#4ADE80"}
	bad     = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	caution = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle  = lipgloss.NewStyle().Foreground(muted)
	footerStyle = mutedStyle.MarginTop(1)

	listFrame = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)

	cursorRow = lipgloss.NewStyle().Bold(true).Foreground(accent)

	okStatus      = lipgloss.NewStyle().Bold(true).Foreground(good)
	failStatus    = lipgloss.NewStyle().Bold(true).Foreground(bad)
	confirmPrompt = lipgloss.NewStyle().Foreground(caution)

	toggleOn  = lipgloss.NewStyle().Foreground(good)
	toggleOff = mutedStyle
)
