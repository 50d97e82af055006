package main

import (
	"github.com/charmbracelet/lipgloss"

	"financas/internal/core"
)

var (
	primaryColor = lipgloss.Color("#2E86AB")
	successColor = lipgloss.Color("#3BB273")
	errorColor   = lipgloss.Color("#E15554")
	subtleColor  = lipgloss.Color("#777777")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	successStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	subtleStyle  = lipgloss.NewStyle().Foreground(subtleColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(subtleColor).
			Padding(0, 2)
)

func formatTitle(s string) string   { return titleStyle.Render(s) }
func formatSuccess(s string) string { return successStyle.Render("✓ " + s) }
func formatError(s string) string   { return errorStyle.Render("✗ " + s) }

// formatMoney colours a signed amount: green when positive, red when
// negative.
func formatMoney(m core.Money) string {
	s := core.FormatBRL(m)
	switch {
	case m.Cents > 0:
		return successStyle.Render(s)
	case m.Cents < 0:
		return errorStyle.Render(s)
	}
	return s
}
