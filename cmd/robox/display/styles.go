package display

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-voice/core/status"
)

type Styles struct {
	Title     lipgloss.Style
	Status    map[status.ConversationStatus]lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Speaking  lipgloss.Style
	Interim   lipgloss.Style
	Notice    lipgloss.Style
	Help      lipgloss.Style
	Error     lipgloss.Style
}

func DefaultStyles() Styles {
	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#0B0B0B"))
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7DF9FF")),
		Status: map[status.ConversationStatus]lipgloss.Style{
			status.Idle:       badge.Background(lipgloss.Color("#8A8A8A")),
			status.Listening:  badge.Background(lipgloss.Color("#FF5F5F")),
			status.Processing: badge.Background(lipgloss.Color("#FFD75F")),
			status.Speaking:   badge.Background(lipgloss.Color("#5FFF87")),
		},
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#87AFFF")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7DF9FF")),
		Speaking:  lipgloss.NewStyle().Foreground(lipgloss.Color("#5FFF87")),
		Interim:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#A8A8A8")),
		Notice:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF5F")),
		Help:      lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
	}
}
