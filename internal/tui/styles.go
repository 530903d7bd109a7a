package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	depth   lipgloss.Style
	passed  lipgloss.Style
	failed  lipgloss.Style
	running lipgloss.Style
	dim     lipgloss.Style
	verdict lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),

		label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(10),

		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		depth: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true),

		passed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),

		running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),

		dim: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		verdict: lipgloss.NewStyle().
			Bold(true).
			MarginTop(1),
	}
}
