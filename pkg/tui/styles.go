package tui

import "github.com/charmbracelet/lipgloss"

// Color Palette
// Environment colours come from the environment style table; these are the
// chrome around them.
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // Primary accent
	mintGreen   = lipgloss.Color("#A8E6CF") // Valid / success states
	mutedGray   = lipgloss.Color("#6B7280") // Secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // Primary text
	dimGray     = lipgloss.Color("238")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	tipsStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	textStyle = lipgloss.NewStyle().
			Foreground(brightWhite)

	okStyle = lipgloss.NewStyle().
		Foreground(mintGreen)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimGray)

	selectedStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedGray).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)
)

// badge renders text on the given background and foreground colours.
func badge(text, background, foreground string) string {
	return lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1).
		Background(lipgloss.Color(background)).
		Foreground(lipgloss.Color(foreground)).
		Render(text)
}
