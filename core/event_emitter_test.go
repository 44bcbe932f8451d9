package orchestration

import (
	"errors"
	"testing"

	"github.com/koscakluka/ema-voice/core/events"
)

func TestCallbackEventEmitterRoutesEvents(t *testing.T) {
	updates := []UtteranceUpdate{}
	transcriptions := []string{}
	notices := []events.NoticeCode{}
	all := 0

	emit := newCallbackEventEmitter(OrchestrateOptions{
		onUtterance:     func(update UtteranceUpdate) { updates = append(updates, update) },
		onTranscription: func(transcript string) { transcriptions = append(transcriptions, transcript) },
		onNotice:        func(notice events.Notice) { notices = append(notices, notice.Code) },
		onEvent:         func(events.Event) { all++ },
	})

	emit(events.NewUtteranceStarted("u1"))
	emit(events.NewUtteranceEnded("u1"))
	emit(events.NewUtteranceFailed("u2", "generic", errors.New("failed")))
	emit(events.NewUtteranceFinalized("hello"))
	emit(events.NewNotice(events.NoticeSpeechInputUnavailable, "no microphone"))
	emit(events.NewRecognitionStarted())

	expected := []UtteranceUpdate{
		{UtteranceID: "u1", Phase: UtterancePhaseStart},
		{UtteranceID: "u1", Phase: UtterancePhaseEnd},
		{UtteranceID: "u2", Phase: UtterancePhaseError},
	}
	if len(updates) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, updates)
	}
	for i := range expected {
		if updates[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, updates)
		}
	}
	if len(transcriptions) != 1 || transcriptions[0] != "hello" {
		t.Fatalf("expected one transcription, got %v", transcriptions)
	}
	if len(notices) != 1 || notices[0] != events.NoticeSpeechInputUnavailable {
		t.Fatalf("expected one notice, got %v", notices)
	}
	if all != 6 {
		t.Fatalf("expected every event on the catch-all callback, got %d", all)
	}
}

func TestCallbackEventEmitterWithoutCallbacks(t *testing.T) {
	emit := newCallbackEventEmitter(OrchestrateOptions{})
	emit(events.NewUtteranceStarted("u1"))
	emit(events.NewNotice(events.NoticeSpeechOutputUnavailable, "no speaker"))
}
