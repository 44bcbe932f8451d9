// Package events defines the typed voice orchestration event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - speech_output.*
//   - speech_input.*
//   - reply.*
//   - conversation_status.*
//   - notice.*
//
// Semantics used across the package:
//
//   - Utterance: one immutable piece of text queued for speech output.
//   - Updated: mutable point-in-time snapshot that can change over time.
//   - Finalized: terminal immutable text committed for the current phase.
//
// speech_output events
//
//   - UtteranceQueued (speech_output.utterance_queued): utterance appended to
//     the speech output queue.
//   - UtteranceStarted (speech_output.utterance_started): engine began playing
//     the active utterance.
//   - UtteranceEnded (speech_output.utterance_ended): engine finished the
//     active utterance.
//   - UtteranceFailed (speech_output.utterance_failed): engine failed the
//     active utterance; includes the normalized failure kind.
//   - UtteranceRetryScheduled (speech_output.utterance_retry_scheduled): an
//     interrupted utterance went back to the head of the queue.
//   - SpeechOutputCancelled (speech_output.cancelled): queue and active
//     utterance were cancelled.
//
// speech_input events
//
//   - RecognitionStarted (speech_input.started): recognition session opened.
//   - TranscriptInterimUpdated (speech_input.transcript_interim_updated):
//     mutable interim transcript snapshot, replaced wholesale.
//   - TranscriptFinalPending (speech_input.transcript_final_pending): engine
//     final result accepted and waiting for the silence window.
//   - UtteranceFinalized (speech_input.utterance_finalized): debounced user
//     utterance committed.
//   - RecognitionFailed (speech_input.failed): recognition session failed.
//   - RecognitionStopped (speech_input.stopped): recognition session torn
//     down for any reason.
//
// reply events
//
//   - ReplyStatusChanged (reply.status_changed): streaming reply channel
//     moved to a new status.
//   - ReplyReady (reply.ready): newest assistant message after the stream
//     completed.
//
// conversation_status events
//
//   - StatusChanged (conversation_status.changed): derived conversation
//     status changed.
//
// notice events
//
//   - Notice (notice.shown): one-shot user facing notice.
package events
