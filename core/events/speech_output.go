package events

const (
	// KindUtteranceQueued identifies an utterance appended to the output queue.
	KindUtteranceQueued Kind = "speech_output.utterance_queued"
	// KindUtteranceStarted identifies the start of utterance playback.
	KindUtteranceStarted Kind = "speech_output.utterance_started"
	// KindUtteranceEnded identifies the end of utterance playback.
	KindUtteranceEnded Kind = "speech_output.utterance_ended"
	// KindUtteranceFailed identifies a failed utterance.
	KindUtteranceFailed Kind = "speech_output.utterance_failed"
	// KindUtteranceRetryScheduled identifies an interrupted utterance waiting for retry.
	KindUtteranceRetryScheduled Kind = "speech_output.utterance_retry_scheduled"
	// KindSpeechOutputCancelled identifies cancellation of all speech output.
	KindSpeechOutputCancelled Kind = "speech_output.cancelled"
)

// UtteranceQueued carries the queued utterance identity.
type UtteranceQueued struct {
	Base
	UtteranceID string
	Text        string
}

// NewUtteranceQueued creates an utterance queued event.
func NewUtteranceQueued(utteranceID, text string) UtteranceQueued {
	return UtteranceQueued{Base: NewBase(KindUtteranceQueued), UtteranceID: utteranceID, Text: text}
}

// UtteranceStarted marks when the engine started speaking an utterance.
type UtteranceStarted struct {
	Base
	UtteranceID string
}

// NewUtteranceStarted creates an utterance started event.
func NewUtteranceStarted(utteranceID string) UtteranceStarted {
	return UtteranceStarted{Base: NewBase(KindUtteranceStarted), UtteranceID: utteranceID}
}

// UtteranceEnded marks when the engine finished speaking an utterance.
type UtteranceEnded struct {
	Base
	UtteranceID string
}

// NewUtteranceEnded creates an utterance ended event.
func NewUtteranceEnded(utteranceID string) UtteranceEnded {
	return UtteranceEnded{Base: NewBase(KindUtteranceEnded), UtteranceID: utteranceID}
}

// UtteranceFailed carries the normalized failure of an utterance.
type UtteranceFailed struct {
	Base
	UtteranceID string
	// FailureKind is one of "permission-denied", "interrupted" or "other".
	FailureKind string
	Err         error
}

// NewUtteranceFailed creates an utterance failed event.
func NewUtteranceFailed(utteranceID, failureKind string, err error) UtteranceFailed {
	return UtteranceFailed{Base: NewBase(KindUtteranceFailed), UtteranceID: utteranceID, FailureKind: failureKind, Err: err}
}

// UtteranceRetryScheduled carries the retry attempt for an interrupted utterance.
type UtteranceRetryScheduled struct {
	Base
	UtteranceID string
	Attempt     int
}

// NewUtteranceRetryScheduled creates an utterance retry scheduled event.
func NewUtteranceRetryScheduled(utteranceID string, attempt int) UtteranceRetryScheduled {
	return UtteranceRetryScheduled{Base: NewBase(KindUtteranceRetryScheduled), UtteranceID: utteranceID, Attempt: attempt}
}

// SpeechOutputCancelled marks cancellation of the queue and the active utterance.
type SpeechOutputCancelled struct {
	Base
	Dropped int
}

// NewSpeechOutputCancelled creates a speech output cancelled event.
func NewSpeechOutputCancelled(dropped int) SpeechOutputCancelled {
	return SpeechOutputCancelled{Base: NewBase(KindSpeechOutputCancelled), Dropped: dropped}
}
