// Package ui renders the active/inactive indicator and the schedule list
// for the terminal.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorSuccess = lipgloss.Color("#2ECC71")
	colorMuted   = lipgloss.Color("#666666")
	colorAccent  = lipgloss.Color("#FF6B6B")
	colorFg      = lipgloss.Color("#C0CAF5")
)

var (
	activeBadgeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorSuccess)

	inactiveBadgeStyle = lipgloss.NewStyle().
				Foreground(colorMuted)

	dateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	doneStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Strikethrough(true)

	nextStyle = lipgloss.NewStyle().
			Foreground(colorAccent)

	listStyle = lipgloss.NewStyle().
			PaddingLeft(2)
)
