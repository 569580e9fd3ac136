// In file: internal/console/banner.go
package console

import "github.com/charmbracelet/lipgloss"

// HelpText lists usage, examples and the REPL commands.
const HelpText = `
USAGE:
  Simply describe your travel plans, and I'll help you pack!

EXAMPLES:
  • "What should I pack for Chicago in 7 days?"
  • "I'm going to Miami next weekend, what should I wear?"
  • "Help me pack for San Francisco 10 days from now"

NOTE: Currently supports US locations only (National Weather Service API)

COMMANDS:
  help  - Show this help message
  quit  - Exit the application
  exit  - Exit the application`

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#2a3850")).
			Padding(1, 6).
			Width(60).
			Align(lipgloss.Center)
)

// Banner is printed when a session starts.
func Banner() string {
	return "\n" + bannerStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("TEMPUS VESTIS"),
		"AI-Powered Wardrobe Consultant",
		"",
		"Your intelligent packing assistant for weather-based wardrobe recommendations",
	))
}
