package display

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Listen       key.Binding
	Send         key.Binding
	StopSpeaking key.Binding
	ToggleOutput key.Binding
	Quit         key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Listen:       key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "listen")),
		Send:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		StopSpeaking: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "stop speaking")),
		ToggleOutput: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "speech on/off")),
		Quit:         key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

func (k KeyMap) bindings() []key.Binding {
	return []key.Binding{k.Listen, k.Send, k.StopSpeaking, k.ToggleOutput, k.Quit}
}
