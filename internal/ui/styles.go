package ui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#faa356"))
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#c93c37")).Padding(0, 1)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff"))
	doneStyle    = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("#6e7681"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8b949e"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	invalidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f85149"))
)
