// Package status derives the single conversation status shown to the user
// from the speech input, reply and speech output signals.
package status

type ConversationStatus int

const (
	Idle ConversationStatus = iota
	Listening
	Processing
	Speaking
)

func (s ConversationStatus) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Listening:
		return "Listening"
	case Processing:
		return "Processing"
	case Speaking:
		return "Speaking"
	default:
		return "Unknown"
	}
}

// ReplyPhase mirrors the status of the streaming reply channel.
type ReplyPhase int

const (
	ReplyReady ReplyPhase = iota
	ReplySubmitted
	ReplyStreaming
	ReplyError
)

// Signals is everything the derivation looks at.
type Signals struct {
	Listening bool
	Reply     ReplyPhase
	// SpeechBusy is true while speech output has an active, queued or retrying
	// utterance.
	SpeechBusy bool
}

// Derive applies the status precedence: listening wins over a submitted
// reply, which wins over streaming or speaking.
func Derive(signals Signals) ConversationStatus {
	switch {
	case signals.Listening:
		return Listening
	case signals.Reply == ReplySubmitted:
		return Processing
	case signals.Reply == ReplyStreaming, signals.SpeechBusy:
		return Speaking
	default:
		return Idle
	}
}
