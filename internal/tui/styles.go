package tui

import "github.com/charmbracelet/lipgloss"

var (
	brandStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CDD6F4"))
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89B4FA"))

	liveDot    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")).Render("●")
	stalledDot = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAB387")).Render("●")
	stoppedDot = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Render("●")

	pillStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6ADC8")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6C7086"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA"))

	clockStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA"))
	headlineStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CDD6F4"))
	warningStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAB387"))
	urlStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	warningBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(lipgloss.Color("#FAB387")).
			Padding(0, 1)
	infoBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1E1E2E")).
			Background(lipgloss.Color("#89B4FA")).
			Padding(0, 1)

	emptyStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#585B70")).Padding(2, 0)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6ADC8")).Padding(1, 0)
	ruleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#313244"))
)
