package llms

import "context"

// Stream yields reply chunks in arrival order. Iteration stops at the first
// error.
type Stream interface {
	Chunks(context.Context) func(func(StreamChunk, error) bool)
}

type StreamChunk interface {
	// FinishReason is nil until the provider reports why the reply ended.
	FinishReason() *string
}

type StreamContentChunk interface {
	StreamChunk
	Content() string
}

// StreamUsageChunk is sent once, after the last content chunk.
type StreamUsageChunk interface {
	StreamChunk
	Usage() Usage
}

// Usage reports token counts and timings of one streamed reply. Timings are in
// seconds and are approximate when the provider does not report them.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int

	QueueTime            float64
	InputProcessingTime  float64
	OutputProcessingTime float64
	TotalTime            float64
}
