// Package reply defines the streaming reply channel the orchestrator talks
// to, and provides [Conversation], an in-memory implementation backed by a
// streaming language model.
package reply

import (
	"context"
	"errors"
)

var ErrClosed = errors.New("reply channel closed")

type Status string

const (
	StatusReady     Status = "ready"
	StatusSubmitted Status = "submitted"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// Pending reports whether a reply is on its way.
func (s Status) Pending() bool {
	return s == StatusSubmitted || s == StatusStreaming
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	ID   string
	Role Role
	Text string
}

// Snapshot is an immutable view of the channel. Messages are ordered oldest
// first.
type Snapshot struct {
	Status   Status
	Messages []Message
	// Err is set while Status is StatusError.
	Err error
}

// LatestReply returns the newest assistant message when it answers the newest
// user message. A turn that produced no content yet has no reply.
func (s Snapshot) LatestReply() (Message, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		switch s.Messages[i].Role {
		case RoleAssistant:
			return s.Messages[i], true
		case RoleUser:
			return Message{}, false
		}
	}
	return Message{}, false
}

// Channel is a streaming reply source. Subscribers are called with every
// state change, in order, and must not call back into the channel
// synchronously.
type Channel interface {
	Send(ctx context.Context, text string) error
	Subscribe(func(Snapshot)) (unsubscribe func())
}
