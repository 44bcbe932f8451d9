package status

import "testing"

func TestDerivePrecedence(t *testing.T) {
	testCases := []struct {
		name     string
		signals  Signals
		expected ConversationStatus
	}{
		{name: "nothing happening", signals: Signals{}, expected: Idle},
		{name: "listening alone", signals: Signals{Listening: true}, expected: Listening},
		{name: "listening beats submitted", signals: Signals{Listening: true, Reply: ReplySubmitted}, expected: Listening},
		{name: "listening beats speaking", signals: Signals{Listening: true, SpeechBusy: true}, expected: Listening},
		{name: "listening beats streaming", signals: Signals{Listening: true, Reply: ReplyStreaming}, expected: Listening},
		{name: "submitted", signals: Signals{Reply: ReplySubmitted}, expected: Processing},
		{name: "submitted beats speaking", signals: Signals{Reply: ReplySubmitted, SpeechBusy: true}, expected: Processing},
		{name: "streaming", signals: Signals{Reply: ReplyStreaming}, expected: Speaking},
		{name: "speech busy after ready", signals: Signals{Reply: ReplyReady, SpeechBusy: true}, expected: Speaking},
		{name: "speech busy after error", signals: Signals{Reply: ReplyError, SpeechBusy: true}, expected: Speaking},
		{name: "reply error", signals: Signals{Reply: ReplyError}, expected: Idle},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := Derive(testCase.signals); got != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, got)
			}
		})
	}
}

func TestCoordinatorEmitsOnlyOnChange(t *testing.T) {
	transitions := []string{}
	c := NewCoordinator(func(from, to ConversationStatus) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	c.Update(Signals{Listening: true})
	c.Update(Signals{Listening: true})
	c.Update(Signals{})
	c.Update(Signals{Reply: ReplySubmitted})
	c.Update(Signals{Reply: ReplyStreaming})
	c.Update(Signals{Reply: ReplyReady, SpeechBusy: true})
	c.Update(Signals{Reply: ReplyReady})

	expected := []string{
		"Idle->Listening",
		"Listening->Idle",
		"Idle->Processing",
		"Processing->Speaking",
		"Speaking->Idle",
	}
	if len(transitions) != len(expected) {
		t.Fatalf("expected transitions %v, got %v", expected, transitions)
	}
	for i := range expected {
		if transitions[i] != expected[i] {
			t.Fatalf("expected transitions %v, got %v", expected, transitions)
		}
	}
	if c.Status() != Idle {
		t.Fatalf("expected final status Idle, got %s", c.Status())
	}
}

func TestCoordinatorUpdateAvoidsIdleBetweenStreamEndAndSpeech(t *testing.T) {
	sawIdle := false
	c := NewCoordinator(func(_, to ConversationStatus) {
		if to == Idle {
			sawIdle = true
		}
	})

	c.Update(Signals{Reply: ReplyStreaming})
	c.Update(Signals{Reply: ReplyReady, SpeechBusy: true})

	if sawIdle {
		t.Fatalf("expected no Idle between streaming and speaking")
	}
	if c.Status() != Speaking {
		t.Fatalf("expected Speaking, got %s", c.Status())
	}
}

func TestConversationStatusString(t *testing.T) {
	if got := ConversationStatus(42).String(); got != "Unknown" {
		t.Fatalf("expected Unknown, got %q", got)
	}
}
