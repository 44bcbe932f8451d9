package llms

import (
	"slices"

	"github.com/koscakluka/ema-voice/internal/utils"
)

type StreamingPromptOptions struct {
	Instructions string
	// History holds earlier messages, oldest first, without the prompt itself.
	History         []Message
	MaxOutputTokens *int
	Temperature     *float64
}

type StreamingPromptOption func(*StreamingPromptOptions)

// WithSystemPrompt sets the instructions for the prompt.
// Repeating this option will overwrite the previous system prompt.
func WithSystemPrompt(prompt string) StreamingPromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.Instructions = prompt
	}
}

// WithHistory sets the conversation history preceding the prompt.
func WithHistory(messages ...Message) StreamingPromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.History = slices.Clone(messages)
	}
}

func WithMaxOutputTokens(tokens int) StreamingPromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.MaxOutputTokens = utils.Ptr(tokens)
	}
}

func WithTemperature(temperature float64) StreamingPromptOption {
	return func(opts *StreamingPromptOptions) {
		opts.Temperature = utils.Ptr(temperature)
	}
}
