package events

const KindStatusChanged Kind = "conversation_status.changed"

// StatusChanged carries the previous and the new derived conversation status
// names.
type StatusChanged struct {
	Base
	From string
	To   string
}

func NewStatusChanged(from, to string) StatusChanged {
	return StatusChanged{Base: NewBase(KindStatusChanged), From: from, To: to}
}
