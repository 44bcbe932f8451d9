// Package display is the kiosk terminal front end: a chat transcript, the
// live status badge, the interim transcript and a text input.
package display

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/koscakluka/ema-voice/core/reply"
	"github.com/koscakluka/ema-voice/core/status"
	"github.com/muesli/reflow/wordwrap"
)

// Controller is the part of the orchestrator the display drives.
type Controller interface {
	ToggleListening()
	SendText(text string)
	StopSpeaking()
	SetOutputEnabled(enabled bool)
}

type StatusMsg struct {
	Status status.ConversationStatus
}

type InterimMsg struct {
	Text string
}

type SnapshotMsg struct {
	Snapshot reply.Snapshot
}

// SpeakingMsg marks which message is being read out. An empty ID clears it.
type SpeakingMsg struct {
	MessageID string
}

type NoticeMsg struct {
	Text string
}

type Model struct {
	width  int
	height int
	ready  bool

	controller Controller
	keys       KeyMap
	styles     Styles

	viewport viewport.Model
	input    textinput.Model

	status        status.ConversationStatus
	interim       string
	snapshot      reply.Snapshot
	speakingID    string
	notice        string
	outputEnabled bool
}

func NewModel(controller Controller, outputEnabled bool) Model {
	input := textinput.New()
	input.Placeholder = "Ask ROBO-X something..."
	input.CharLimit = 500
	input.Prompt = "> "
	input.Focus()

	return Model{
		controller:    controller,
		keys:          DefaultKeyMap(),
		styles:        DefaultStyles(),
		viewport:      viewport.New(80, 20),
		input:         input,
		outputEnabled: outputEnabled,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m = m.updateDimensions()
		m.refresh(false)
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		return m, nil

	case InterimMsg:
		m.interim = msg.Text
		return m, nil

	case SnapshotMsg:
		m.snapshot = msg.Snapshot
		m.refresh(true)
		return m, nil

	case SpeakingMsg:
		m.speakingID = msg.MessageID
		m.refresh(false)
		return m, nil

	case NoticeMsg:
		m.notice = msg.Text
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Listen):
		m.controller.ToggleListening()
		return m, nil

	case key.Matches(msg, m.keys.StopSpeaking):
		m.controller.StopSpeaking()
		return m, nil

	case key.Matches(msg, m.keys.ToggleOutput):
		m.outputEnabled = !m.outputEnabled
		m.controller.SetOutputEnabled(m.outputEnabled)
		return m, nil

	case key.Matches(msg, m.keys.Send):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.notice = ""
		m.controller.SendText(text)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Starting ROBO-X..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderInterim())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(m.styles.Notice.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) updateDimensions() Model {
	headerHeight := 2
	footerHeight := 5

	m.viewport.Width = max(m.width-2, 10)
	m.viewport.Height = max(m.height-headerHeight-footerHeight, 3)
	m.input.Width = max(m.width-4, 10)
	return m
}

func (m *Model) refresh(follow bool) {
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) renderHeader() string {
	badge, ok := m.styles.Status[m.status]
	if !ok {
		badge = m.styles.Status[status.Idle]
	}
	header := m.styles.Title.Render("ROBO-X") + "  " + badge.Render(m.status.String())
	if !m.outputEnabled {
		header += "  " + m.styles.Help.Render("speech off")
	}
	return header
}

func (m Model) renderTranscript() string {
	width := max(m.viewport.Width-2, 10)

	var b strings.Builder
	for _, message := range m.snapshot.Messages {
		text := wordwrap.String(message.Text, width)
		switch message.Role {
		case reply.RoleUser:
			b.WriteString(m.styles.User.Render("You"))
			b.WriteString("\n")
			b.WriteString(text)
		case reply.RoleAssistant:
			b.WriteString(m.styles.Assistant.Render("ROBO-X"))
			b.WriteString("\n")
			if message.ID != "" && message.ID == m.speakingID {
				text = m.styles.Speaking.Render(text)
			}
			b.WriteString(text)
		}
		b.WriteString("\n\n")
	}

	switch m.snapshot.Status {
	case reply.StatusSubmitted:
		b.WriteString(m.styles.Help.Render("thinking..."))
	case reply.StatusError:
		b.WriteString(m.styles.Error.Render("Something went wrong. Please try again."))
	}
	return b.String()
}

func (m Model) renderInterim() string {
	if m.status != status.Listening {
		return ""
	}
	if m.interim == "" {
		return m.styles.Interim.Render("listening...")
	}
	return m.styles.Interim.Render(wordwrap.String(m.interim, max(m.width-2, 10)))
}

func (m Model) renderHelp() string {
	parts := []string{}
	for _, binding := range m.keys.bindings() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return m.styles.Help.Render(strings.Join(parts, " • "))
}
