// Package console renders the human-readable monitor report.
package console

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	Bull    = lipgloss.Color("#8BC34A") // Lime Green
	Bear    = lipgloss.Color("#e53935") // Red
	Warning = lipgloss.Color("#FFC107") // Yellow
	Info    = lipgloss.Color("#2196F3") // Blue
	Muted   = lipgloss.Color("#6b7685")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Info).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Info).
			Padding(0, 1)

	labelStyle   = lipgloss.NewStyle().Foreground(Muted)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(Warning)
	bullStyle    = lipgloss.NewStyle().Bold(true).Foreground(Bull)
	bearStyle    = lipgloss.NewStyle().Bold(true).Foreground(Bear)
	statusStyle  = lipgloss.NewStyle().Foreground(Muted)
	summaryStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(Muted).
			Padding(0, 1)
)
