package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorGreen  = lipgloss.Color("2")
	colorRed    = lipgloss.Color("1")
	colorYellow = lipgloss.Color("3")
	colorGrey   = lipgloss.Color("8")

	greenStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	redStyle    = lipgloss.NewStyle().Foreground(colorRed)
	yellowStyle = lipgloss.NewStyle().Foreground(colorYellow)
	greyStyle   = lipgloss.NewStyle().Foreground(colorGrey)
)

// Green renders s in the success/affirmative role.
func Green(s string) string { return greenStyle.Render(s) }

// Red renders s in the failure/negative role.
func Red(s string) string { return redStyle.Render(s) }

// Yellow renders s in the warning/privileged role.
func Yellow(s string) string { return yellowStyle.Render(s) }

// Grey renders s de-emphasized, used for comment lines and hints.
func Grey(s string) string { return greyStyle.Render(s) }
