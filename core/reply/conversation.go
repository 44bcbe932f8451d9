package reply

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var _ Channel = (*Conversation)(nil)

// Streamer is a language model client able to stream a reply.
type Streamer interface {
	PromptWithStream(ctx context.Context, prompt *string, opts ...llms.StreamingPromptOption) llms.Stream
}

// Conversation keeps the chat history in memory and streams one reply at a
// time. Sending a new message aborts the reply in flight.
type Conversation struct {
	streamer        Streamer
	instructions    string
	maxMessages     int
	maxOutputTokens *int

	mu          sync.Mutex
	status      Status
	err         error
	messages    []Message
	generation  uint64
	cancel      context.CancelFunc
	subscribers map[uint64]func(Snapshot)
	nextSub     uint64
	closed      bool

	// notifyMu keeps subscriber calls in mutation order.
	notifyMu sync.Mutex
	wg       sync.WaitGroup
}

func NewConversation(streamer Streamer, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		streamer:     streamer,
		instructions: DefaultInstructions,
		maxMessages:  DefaultMaxMessages,
		status:       StatusReady,
		subscribers:  map[uint64]func(Snapshot){},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send appends a user message and starts streaming the reply. Empty text is
// ignored.
func (c *Conversation) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.streamer == nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to send message: no language model configured")
	}

	c.abortLocked()
	history := c.historyLocked()
	c.appendLocked(Message{ID: uuid.NewString(), Role: RoleUser, Text: text})
	c.status = StatusSubmitted
	c.err = nil
	c.generation++
	generation := c.generation

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.wg.Add(1)
	c.publishLocked()

	go func() {
		defer c.wg.Done()
		defer cancel()
		c.stream(streamCtx, generation, text, history)
	}()
	return nil
}

// Stop aborts the reply in flight. Text received so far is kept.
func (c *Conversation) Stop() {
	c.mu.Lock()
	if c.closed || !c.status.Pending() {
		c.mu.Unlock()
		return
	}
	c.abortLocked()
	c.generation++
	c.status = StatusReady
	c.publishLocked()
}

// Close aborts the reply in flight, drops all subscribers and waits for the
// streaming goroutine to return.
func (c *Conversation) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.abortLocked()
	c.generation++
	c.closed = true
	c.subscribers = map[uint64]func(Snapshot){}
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Conversation) Subscribe(f func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || f == nil {
		return func() {}
	}

	c.nextSub++
	id := c.nextSub
	c.subscribers[id] = f

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) stream(ctx context.Context, generation uint64, prompt string, history []llms.Message) {
	ctx, span := tracer.Start(ctx, "send reply")
	defer span.End()
	span.SetAttributes(
		attribute.Int("reply.prompt_length", len(prompt)),
		attribute.Int("reply.history_length", len(history)),
	)

	opts := []llms.StreamingPromptOption{
		llms.WithSystemPrompt(c.instructions),
		llms.WithHistory(history...),
	}
	if c.maxOutputTokens != nil {
		opts = append(opts, llms.WithMaxOutputTokens(*c.maxOutputTokens))
	}

	stream := c.streamer.PromptWithStream(ctx, &prompt, opts...)
	assistantID := ""
	var text strings.Builder
	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				span.AddEvent("reply aborted")
				return
			}
			err = fmt.Errorf("failed to stream reply: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.finish(generation, StatusError, err)
			return
		}

		content, ok := chunk.(llms.StreamContentChunk)
		if !ok || content.Content() == "" {
			continue
		}
		if assistantID == "" {
			assistantID = uuid.NewString()
		}
		text.WriteString(content.Content())
		if !c.update(generation, assistantID, text.String()) {
			span.AddEvent("reply superseded")
			return
		}
	}

	if ctx.Err() != nil {
		span.AddEvent("reply aborted")
		return
	}
	span.SetAttributes(attribute.Int("reply.length", text.Len()))
	c.finish(generation, StatusReady, nil)
}

// update sets the text of the streaming assistant message. It reports false
// once the generation is stale.
func (c *Conversation) update(generation uint64, id, text string) bool {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return false
	}

	last := len(c.messages) - 1
	if last >= 0 && c.messages[last].ID == id {
		c.messages[last].Text = text
	} else {
		c.appendLocked(Message{ID: id, Role: RoleAssistant, Text: text})
	}
	c.status = StatusStreaming
	c.publishLocked()
	return true
}

func (c *Conversation) finish(generation uint64, status Status, err error) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return
	}
	if err != nil {
		logger.Warn("reply failed", "error", err)
	}
	c.status = status
	c.err = err
	c.cancel = nil
	c.publishLocked()
}

func (c *Conversation) abortLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Conversation) appendLocked(message Message) {
	c.messages = append(c.messages, message)
	if over := len(c.messages) - c.maxMessages; over > 0 {
		c.messages = append([]Message(nil), c.messages[over:]...)
	}
}

func (c *Conversation) historyLocked() []llms.Message {
	history := make([]llms.Message, 0, len(c.messages))
	for _, message := range c.messages {
		role := llms.RoleUser
		if message.Role == RoleAssistant {
			role = llms.RoleAssistant
		}
		history = append(history, llms.Message{Role: role, Content: message.Text})
	}
	return history
}

func (c *Conversation) snapshotLocked() Snapshot {
	messages := make([]Message, len(c.messages))
	copy(messages, c.messages)
	return Snapshot{Status: c.status, Messages: messages, Err: c.err}
}

// publishLocked notifies subscribers and releases c.mu.
func (c *Conversation) publishLocked() {
	snapshot := c.snapshotLocked()
	subscribers := make([]func(Snapshot), 0, len(c.subscribers))
	for id := uint64(1); id <= c.nextSub; id++ {
		if f, ok := c.subscribers[id]; ok {
			subscribers = append(subscribers, f)
		}
	}

	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, f := range subscribers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("reply subscriber panicked", "panic", r)
				}
			}()
			f(snapshot)
		}()
	}
}
