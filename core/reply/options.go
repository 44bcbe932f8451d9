package reply

import "github.com/koscakluka/ema-voice/internal/utils"

const DefaultMaxMessages = 50

type ConversationOption func(*Conversation)

// WithInstructions replaces the system prompt sent with every request.
func WithInstructions(instructions string) ConversationOption {
	return func(c *Conversation) {
		c.instructions = instructions
	}
}

// WithMaxMessages caps the kept history. Oldest messages are dropped first.
func WithMaxMessages(n int) ConversationOption {
	return func(c *Conversation) {
		if n > 0 {
			c.maxMessages = n
		}
	}
}

func WithMaxOutputTokens(n int) ConversationOption {
	return func(c *Conversation) {
		if n > 0 {
			c.maxOutputTokens = utils.Ptr(n)
		}
	}
}
