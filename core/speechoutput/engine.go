package speechoutput

import "context"

// Request is what the queue hands to the engine for the active utterance.
type Request struct {
	Utterance Utterance
	Voice     Voice
}

type EngineEventKind string

const (
	EngineEventStarted EngineEventKind = "started"
	EngineEventEnded   EngineEventKind = "ended"
	EngineEventFailed  EngineEventKind = "failed"
)

// EngineEvent is a playback lifecycle report for one request.
type EngineEvent struct {
	Kind EngineEventKind
	// Seq correlates the event with [Utterance.Seq]. Sinks handed out by the
	// queue fill it in, so engines are free to leave it empty.
	Seq uint64
	// Attempt identifies the playback attempt of the utterance, so reports
	// from an interrupted attempt never reach its retry. Filled in like Seq.
	Attempt uint64
	Err     error
}

// EventSink receives engine events. It can be called from any goroutine.
type EventSink func(EngineEvent)

// Engine plays one request at a time. An engine instance is leased to a
// single queue for its whole lifetime.
//
// Speak must not block until playback finishes. A returned error is treated
// the same as a failed event. Engines may report nothing after Cancel.
type Engine interface {
	Speak(ctx context.Context, request Request, sink EventSink) error
	Cancel() error
}
