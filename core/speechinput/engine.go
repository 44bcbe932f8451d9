package speechinput

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned by [Session.Start] when no recognition
	// engine is present on this device.
	ErrUnavailable   = errors.New("speech recognition unavailable")
	ErrAlreadyActive = errors.New("speech recognition already active")
	// ErrPermissionDenied is wrapped by engines when microphone or service
	// access was refused.
	ErrPermissionDenied = errors.New("speech recognition not permitted")
	ErrClosed           = errors.New("speech input session closed")
)

type EngineEventKind string

const (
	// EngineEventInterim carries the full current hypothesis, replacing any
	// earlier interim text.
	EngineEventInterim EngineEventKind = "interim"
	// EngineEventFinal carries the full committed transcript so far.
	EngineEventFinal EngineEventKind = "final"
	EngineEventError EngineEventKind = "error"
	EngineEventEnd   EngineEventKind = "end"
)

type EngineEvent struct {
	Kind       EngineEventKind
	Transcript string
	Err        error
	// Session correlates the event with the session that produced it. Sinks
	// handed out by [Session] fill it in.
	Session uint64
}

// EventSink receives engine events. It can be called from any goroutine.
type EventSink func(EngineEvent)

// Engine runs one recognition session at a time. An engine instance is leased
// to a single [Session] for its whole lifetime.
type Engine interface {
	Start(ctx context.Context, sink EventSink) error
	Stop() error
}
