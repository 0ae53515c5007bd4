package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/moolen/medidesk/internal/agents"
	"github.com/moolen/medidesk/internal/session"
)

var (
	colorPrimary = lipgloss.Color("#2563EB")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
	colorText    = lipgloss.Color("#E5E7EB")
	colorDim     = lipgloss.Color("#4B5563")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)

	activePanelStyle = panelStyle.
				BorderForeground(colorWarning)

	secureBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(colorError).
				Bold(true).
				Padding(0, 1)

	inputPromptStyle = lipgloss.NewStyle().
				Foreground(colorSuccess).
				Bold(true)

	userLabelStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	userMessageStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#1E3A5F")).
				Foreground(colorText).
				Padding(0, 1)

	systemMessageStyle = lipgloss.NewStyle().
				Foreground(colorError).
				Italic(true)

	workingStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(colorPrimary)

	timestampStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// agentStyle colors text in the agent's brand color.
func agentStyle(id agents.Identity) lipgloss.Style {
	def, ok := agents.Get(id)
	if !ok {
		return lipgloss.NewStyle().Foreground(colorText)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(def.Color)).Bold(true)
}

func logLevelStyle(level session.Level) lipgloss.Style {
	switch level {
	case session.LevelSuccess:
		return lipgloss.NewStyle().Foreground(colorSuccess)
	case session.LevelWarning:
		return lipgloss.NewStyle().Foreground(colorWarning)
	case session.LevelError:
		return lipgloss.NewStyle().Foreground(colorError)
	default:
		return lipgloss.NewStyle().Foreground(colorText)
	}
}
