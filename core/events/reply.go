package events

const (
	KindReplyStatusChanged Kind = "reply.status_changed"
	KindReplyReady         Kind = "reply.ready"
)

type ReplyStatusChanged struct {
	Base
	Status string
}

func NewReplyStatusChanged(status string) ReplyStatusChanged {
	return ReplyStatusChanged{Base: NewBase(KindReplyStatusChanged), Status: status}
}

// ReplyReady carries the newest assistant message once streaming completed.
// Text is empty if the reply produced no assistant message.
type ReplyReady struct {
	Base
	MessageID string
	Text      string
}

func NewReplyReady(messageID, text string) ReplyReady {
	return ReplyReady{Base: NewBase(KindReplyReady), MessageID: messageID, Text: text}
}
