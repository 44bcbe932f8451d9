package events

const (
	// KindRecognitionStarted identifies an opened recognition session.
	KindRecognitionStarted Kind = "speech_input.started"
	// KindTranscriptInterimUpdated identifies mutable interim transcript updates.
	KindTranscriptInterimUpdated Kind = "speech_input.transcript_interim_updated"
	// KindTranscriptFinalPending identifies an accepted final waiting for silence.
	KindTranscriptFinalPending Kind = "speech_input.transcript_final_pending"
	// KindUtteranceFinalized identifies a committed user utterance.
	KindUtteranceFinalized Kind = "speech_input.utterance_finalized"
	// KindRecognitionFailed identifies a failed recognition session.
	KindRecognitionFailed Kind = "speech_input.failed"
	// KindRecognitionStopped identifies a torn down recognition session.
	KindRecognitionStopped Kind = "speech_input.stopped"
)

// RecognitionStarted marks when a recognition session opens.
type RecognitionStarted struct{ Base }

// NewRecognitionStarted creates a recognition started event.
func NewRecognitionStarted() RecognitionStarted {
	return RecognitionStarted{Base: NewBase(KindRecognitionStarted)}
}

// TranscriptInterimUpdated carries the current interim transcript snapshot.
type TranscriptInterimUpdated struct {
	Base
	Transcript string
}

// NewTranscriptInterimUpdated creates an interim transcript update event.
func NewTranscriptInterimUpdated(transcript string) TranscriptInterimUpdated {
	return TranscriptInterimUpdated{Base: NewBase(KindTranscriptInterimUpdated), Transcript: transcript}
}

// TranscriptFinalPending carries a final transcript that is waiting for the silence window.
type TranscriptFinalPending struct {
	Base
	Transcript string
}

// NewTranscriptFinalPending creates a pending final transcript event.
func NewTranscriptFinalPending(transcript string) TranscriptFinalPending {
	return TranscriptFinalPending{Base: NewBase(KindTranscriptFinalPending), Transcript: transcript}
}

// UtteranceFinalized carries the committed user utterance.
type UtteranceFinalized struct {
	Base
	Transcript string
}

// NewUtteranceFinalized creates an utterance finalized event.
func NewUtteranceFinalized(transcript string) UtteranceFinalized {
	return UtteranceFinalized{Base: NewBase(KindUtteranceFinalized), Transcript: transcript}
}

// RecognitionFailed carries the error that ended the recognition session.
type RecognitionFailed struct {
	Base
	Err error
}

// NewRecognitionFailed creates a recognition failed event.
func NewRecognitionFailed(err error) RecognitionFailed {
	return RecognitionFailed{Base: NewBase(KindRecognitionFailed), Err: err}
}

// RecognitionStopped marks when a recognition session is torn down.
type RecognitionStopped struct {
	Base
	Reason string
}

// NewRecognitionStopped creates a recognition stopped event.
func NewRecognitionStopped(reason string) RecognitionStopped {
	return RecognitionStopped{Base: NewBase(KindRecognitionStopped), Reason: reason}
}
