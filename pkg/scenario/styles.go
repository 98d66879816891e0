package scenario

import "github.com/charmbracelet/lipgloss"

// Color Palette
var (
	salmonPink  = lipgloss.Color("#FFB3BA") // primary accent
	mintGreen   = lipgloss.Color("#A8E6CF") // success
	amber       = lipgloss.Color("#FCD34D") // warnings and skipped steps
	mutedGray   = lipgloss.Color("#6B7280") // secondary text
	brightWhite = lipgloss.Color("#F9FAFB") // primary text
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(brightWhite).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(salmonPink)

	successStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	// summaryBoxStyle frames the end-of-run summary
	summaryBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(salmonPink).
			Padding(0, 1)
)
