package status

// Coordinator owns the derived status. It is not safe for concurrent use.
type Coordinator struct {
	signals  Signals
	current  ConversationStatus
	onChange func(from, to ConversationStatus)
}

func NewCoordinator(onChange func(from, to ConversationStatus)) *Coordinator {
	return &Coordinator{current: Idle, onChange: onChange}
}

func (c *Coordinator) Status() ConversationStatus { return c.current }

// Update replaces all signals at once so that intermediate combinations are
// never observed.
func (c *Coordinator) Update(signals Signals) {
	c.signals = signals
	c.recompute()
}

func (c *Coordinator) recompute() {
	next := Derive(c.signals)
	if next == c.current {
		return
	}
	previous := c.current
	c.current = next
	if c.onChange != nil {
		c.onChange(previous, next)
	}
}
