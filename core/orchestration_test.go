package orchestration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/reply"
	"github.com/koscakluka/ema-voice/core/speechinput"
	"github.com/koscakluka/ema-voice/core/speechoutput"
	"github.com/koscakluka/ema-voice/core/status"
	"github.com/koscakluka/ema-voice/core/timers"
)

func TestReplyIsSpokenWithoutStatusFlicker(t *testing.T) {
	engine := &fakeSpeechEngine{}
	channel := &fakeChannel{}
	statuses := []string{}
	o := startOrchestrator(t,
		[]OrchestratorOption{WithSpeechOutputEngine(engine), WithReplyChannel(channel)},
		WithStatusChangedCallback(func(_, to status.ConversationStatus) { statuses = append(statuses, to.String()) }),
	)

	o.SendText("hi")
	flush(t, o)
	if got := o.Status(); got != status.Processing {
		t.Fatalf("expected Processing after sending, got %s", got)
	}

	channel.publish(reply.Snapshot{Status: reply.StatusStreaming, Messages: []reply.Message{
		{ID: "u", Role: reply.RoleUser, Text: "hi"},
		{ID: "a1", Role: reply.RoleAssistant, Text: "Hello"},
	}})
	channel.publish(reply.Snapshot{Status: reply.StatusReady, Messages: []reply.Message{
		{ID: "u", Role: reply.RoleUser, Text: "hi"},
		{ID: "a1", Role: reply.RoleAssistant, Text: "Hello there"},
	}})
	flush(t, o)

	request, ok := engine.lastRequest()
	if !ok {
		t.Fatalf("expected the reply to be spoken")
	}
	if request.Utterance.Text != "Hello there" || request.Utterance.ID != "a1" {
		t.Fatalf("expected utterance a1 %q, got %s %q", "Hello there", request.Utterance.ID, request.Utterance.Text)
	}

	engine.report(speechoutput.EngineEvent{Kind: speechoutput.EngineEventStarted})
	engine.report(speechoutput.EngineEvent{Kind: speechoutput.EngineEventEnded})
	flush(t, o)

	expected := []string{"Processing", "Speaking", "Idle"}
	if !equalStrings(statuses, expected) {
		t.Fatalf("expected statuses %v, got %v", expected, statuses)
	}
	if got := channel.sentTexts(); !equalStrings(got, []string{"hi"}) {
		t.Fatalf("expected one sent turn, got %v", got)
	}
}

func TestListeningPreemptsSpeaking(t *testing.T) {
	engine := &fakeSpeechEngine{}
	recognizer := &fakeRecognizer{}
	statuses := []string{}
	o := startOrchestrator(t,
		[]OrchestratorOption{WithSpeechOutputEngine(engine), WithSpeechInputEngine(recognizer)},
		WithStatusChangedCallback(func(_, to status.ConversationStatus) { statuses = append(statuses, to.String()) }),
	)

	o.Speak("a long story", "u1")
	flush(t, o)
	engine.report(speechoutput.EngineEvent{Kind: speechoutput.EngineEventStarted})
	flush(t, o)

	o.ToggleListening()
	flush(t, o)

	if got := engine.cancelCount(); got != 1 {
		t.Fatalf("expected speech to be cancelled once, got %d", got)
	}
	if got := o.Status(); got != status.Listening {
		t.Fatalf("expected Listening, got %s", got)
	}

	// late report for the cancelled utterance
	engine.report(speechoutput.EngineEvent{Kind: speechoutput.EngineEventEnded})
	flush(t, o)

	expected := []string{"Speaking", "Listening"}
	if !equalStrings(statuses, expected) {
		t.Fatalf("expected statuses %v, got %v", expected, statuses)
	}
}

func TestFinalTranscriptIsSubmittedAfterSilence(t *testing.T) {
	recognizer := &fakeRecognizer{}
	channel := &fakeChannel{}
	scheduler := timers.NewManual()
	statuses := []string{}
	transcriptions := []string{}
	o := startOrchestrator(t,
		[]OrchestratorOption{WithSpeechInputEngine(recognizer), WithReplyChannel(channel), WithScheduler(scheduler)},
		WithStatusChangedCallback(func(_, to status.ConversationStatus) { statuses = append(statuses, to.String()) }),
		WithTranscriptionCallback(func(transcript string) { transcriptions = append(transcriptions, transcript) }),
	)

	o.ToggleListening()
	flush(t, o)

	recognizer.report(speechinput.EngineEvent{Kind: speechinput.EngineEventFinal, Transcript: "hello"})
	onLoop(t, o, func() { scheduler.Advance(500 * time.Millisecond) })
	recognizer.report(speechinput.EngineEvent{Kind: speechinput.EngineEventFinal, Transcript: "hello world"})
	onLoop(t, o, func() { scheduler.Advance(speechinput.DefaultSilenceWindow - time.Millisecond) })

	if got := channel.sentTexts(); len(got) != 0 {
		t.Fatalf("expected nothing sent inside the silence window, got %v", got)
	}

	onLoop(t, o, func() { scheduler.Advance(time.Millisecond) })

	if got := channel.sentTexts(); !equalStrings(got, []string{"hello world"}) {
		t.Fatalf("expected exactly one turn %q, got %v", "hello world", got)
	}
	if !equalStrings(transcriptions, []string{"hello world"}) {
		t.Fatalf("expected transcription callback once, got %v", transcriptions)
	}
	expected := []string{"Listening", "Processing"}
	if !equalStrings(statuses, expected) {
		t.Fatalf("expected statuses %v, got %v", expected, statuses)
	}
	if got := recognizer.stopCount(); got != 1 {
		t.Fatalf("expected recognition to be stopped once, got %d", got)
	}
}

func TestSameReplyIsNotSpokenTwice(t *testing.T) {
	engine := &fakeSpeechEngine{}
	channel := &fakeChannel{}
	o := startOrchestrator(t, []OrchestratorOption{WithSpeechOutputEngine(engine), WithReplyChannel(channel)})

	messages := []reply.Message{{ID: "a1", Role: reply.RoleAssistant, Text: "Same answer"}}
	for range 2 {
		channel.publish(reply.Snapshot{Status: reply.StatusSubmitted, Messages: messages})
		channel.publish(reply.Snapshot{Status: reply.StatusReady, Messages: messages})
	}
	flush(t, o)

	if got := engine.requestCount(); got != 1 {
		t.Fatalf("expected one speak request, got %d", got)
	}
}

func TestReplyReadyWhileListeningIsNotSpoken(t *testing.T) {
	engine := &fakeSpeechEngine{}
	recognizer := &fakeRecognizer{}
	channel := &fakeChannel{}
	o := startOrchestrator(t, []OrchestratorOption{
		WithSpeechOutputEngine(engine), WithSpeechInputEngine(recognizer), WithReplyChannel(channel),
	})

	o.SendText("hi")
	flush(t, o)
	o.ToggleListening()
	flush(t, o)
	channel.publish(reply.Snapshot{Status: reply.StatusReady, Messages: []reply.Message{
		{ID: "u", Role: reply.RoleUser, Text: "hi"},
		{ID: "a1", Role: reply.RoleAssistant, Text: "Hello there"},
	}})
	flush(t, o)

	if got := engine.requestCount(); got != 0 {
		t.Fatalf("expected no speech while listening, got %d requests", got)
	}
	if got := o.Status(); got != status.Listening {
		t.Fatalf("expected Listening, got %s", got)
	}
}

func TestTurnWithoutReplyDoesNotSpeakOlderReply(t *testing.T) {
	engine := &fakeSpeechEngine{}
	channel := &fakeChannel{}
	o := startOrchestrator(t, []OrchestratorOption{WithSpeechOutputEngine(engine), WithReplyChannel(channel)})

	channel.publish(reply.Snapshot{Status: reply.StatusStreaming, Messages: []reply.Message{
		{ID: "u1", Role: reply.RoleUser, Text: "tell me a story"},
		{ID: "a1", Role: reply.RoleAssistant, Text: "Once upon"},
	}})
	channel.publish(reply.Snapshot{Status: reply.StatusSubmitted, Messages: []reply.Message{
		{ID: "u1", Role: reply.RoleUser, Text: "tell me a story"},
		{ID: "a1", Role: reply.RoleAssistant, Text: "Once upon"},
		{ID: "u2", Role: reply.RoleUser, Text: "stop"},
	}})
	channel.publish(reply.Snapshot{Status: reply.StatusReady, Messages: []reply.Message{
		{ID: "u1", Role: reply.RoleUser, Text: "tell me a story"},
		{ID: "a1", Role: reply.RoleAssistant, Text: "Once upon"},
		{ID: "u2", Role: reply.RoleUser, Text: "stop"},
	}})
	flush(t, o)

	if got := engine.requestCount(); got != 0 {
		t.Fatalf("expected the aborted reply not to be spoken, got %d requests", got)
	}
	if got := o.Status(); got != status.Idle {
		t.Fatalf("expected Idle, got %s", got)
	}
}

func TestReplyErrorLeavesQueuedSpeech(t *testing.T) {
	engine := &fakeSpeechEngine{}
	channel := &fakeChannel{}
	o := startOrchestrator(t, []OrchestratorOption{WithSpeechOutputEngine(engine), WithReplyChannel(channel)})

	o.Speak("still talking", "u1")
	channel.publish(reply.Snapshot{Status: reply.StatusSubmitted})
	channel.publish(reply.Snapshot{Status: reply.StatusError, Err: errors.New("model unavailable")})
	flush(t, o)

	if got := engine.cancelCount(); got != 0 {
		t.Fatalf("expected speech to keep playing, got %d cancels", got)
	}
	if got := o.Status(); got != status.Speaking {
		t.Fatalf("expected Speaking while the utterance plays, got %s", got)
	}

	engine.report(speechoutput.EngineEvent{Kind: speechoutput.EngineEventEnded})
	flush(t, o)
	if got := o.Status(); got != status.Idle {
		t.Fatalf("expected Idle after a failed reply, got %s", got)
	}
}

func TestAutoSpeakOffSkipsReplies(t *testing.T) {
	engine := &fakeSpeechEngine{}
	channel := &fakeChannel{}
	ready := []string{}
	settings := DefaultSettings()
	settings.AutoSpeak = false
	o := startOrchestrator(t,
		[]OrchestratorOption{WithSpeechOutputEngine(engine), WithReplyChannel(channel), WithSettings(settings)},
		WithEventCallback(func(event events.Event) {
			if readyEvent, ok := event.(events.ReplyReady); ok {
				ready = append(ready, readyEvent.Text)
			}
		}),
	)

	channel.publish(reply.Snapshot{Status: reply.StatusSubmitted})
	channel.publish(reply.Snapshot{Status: reply.StatusReady, Messages: []reply.Message{{ID: "a1", Role: reply.RoleAssistant, Text: "quiet"}}})
	flush(t, o)

	if got := engine.requestCount(); got != 0 {
		t.Fatalf("expected no speech with auto speak off, got %d requests", got)
	}
	if !equalStrings(ready, []string{"quiet"}) {
		t.Fatalf("expected reply ready event, got %v", ready)
	}
}

func TestSendTextCancelsSpeechAndStopsListening(t *testing.T) {
	engine := &fakeSpeechEngine{}
	recognizer := &fakeRecognizer{}
	channel := &fakeChannel{}
	o := startOrchestrator(t, []OrchestratorOption{
		WithSpeechOutputEngine(engine), WithSpeechInputEngine(recognizer), WithReplyChannel(channel),
	})

	o.Speak("old answer", "u1")
	flush(t, o)
	o.SendText("new question")
	flush(t, o)

	if got := engine.cancelCount(); got != 1 {
		t.Fatalf("expected speech to be cancelled by a new turn, got %d", got)
	}

	o.ToggleListening()
	flush(t, o)
	o.SendText("typed instead")
	flush(t, o)

	if got := recognizer.stopCount(); got != 1 {
		t.Fatalf("expected listening to be stopped, got %d stops", got)
	}
	if got := channel.sentTexts(); !equalStrings(got, []string{"new question", "typed instead"}) {
		t.Fatalf("expected both turns to be sent, got %v", got)
	}
	if got := o.Status(); got != status.Processing {
		t.Fatalf("expected Processing, got %s", got)
	}
}

func TestSendFailureDerivesIdle(t *testing.T) {
	channel := &fakeChannel{sendErr: reply.ErrClosed}
	o := startOrchestrator(t, []OrchestratorOption{WithReplyChannel(channel)})

	o.SendText("anyone there")
	flush(t, o)

	if got := o.Status(); got != status.Idle {
		t.Fatalf("expected Idle after a failed send, got %s", got)
	}
}

func TestMissingSpeechOutputShowsNoticeOnce(t *testing.T) {
	notices := []events.NoticeCode{}
	o := startOrchestrator(t, nil,
		WithNoticeCallback(func(notice events.Notice) { notices = append(notices, notice.Code) }),
	)

	o.Speak("nobody hears this", "u1")
	o.SetOutputEnabled(true)
	o.Speak("or this", "u2")
	flush(t, o)

	if len(notices) != 1 || notices[0] != events.NoticeSpeechOutputUnavailable {
		t.Fatalf("expected one unavailable notice, got %v", notices)
	}
	if got := o.Status(); got != status.Idle {
		t.Fatalf("expected Idle, got %s", got)
	}
}

func TestMissingSpeechInputShowsNoticeOnce(t *testing.T) {
	notices := []events.NoticeCode{}
	o := startOrchestrator(t, nil,
		WithNoticeCallback(func(notice events.Notice) { notices = append(notices, notice.Code) }),
	)

	o.ToggleListening()
	o.ToggleListening()
	flush(t, o)

	count := 0
	for _, code := range notices {
		if code == events.NoticeSpeechInputUnavailable {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one speech input notice, got %v", notices)
	}
	if got := o.Status(); got != status.Idle {
		t.Fatalf("expected Idle, got %s", got)
	}
}

func TestUtterancePhasesAreReported(t *testing.T) {
	engine := &fakeSpeechEngine{}
	updates := []UtteranceUpdate{}
	o := startOrchestrator(t,
		[]OrchestratorOption{WithSpeechOutputEngine(engine)},
		WithUtteranceCallback(func(update UtteranceUpdate) { updates = append(updates, update) }),
	)

	o.Speak("first", "u1")
	flush(t, o)
	engine.report(speechoutput.EngineEvent{Kind: speechoutput.EngineEventStarted})
	engine.report(speechoutput.EngineEvent{Kind: speechoutput.EngineEventEnded})
	flush(t, o)

	expected := []UtteranceUpdate{{UtteranceID: "u1", Phase: UtterancePhaseStart}, {UtteranceID: "u1", Phase: UtterancePhaseEnd}}
	if len(updates) != len(expected) {
		t.Fatalf("expected updates %v, got %v", expected, updates)
	}
	for i := range expected {
		if updates[i] != expected[i] {
			t.Fatalf("expected updates %v, got %v", expected, updates)
		}
	}
}

func TestInterimTranscriptFollowsListening(t *testing.T) {
	recognizer := &fakeRecognizer{}
	interims := []string{}
	o := startOrchestrator(t,
		[]OrchestratorOption{WithSpeechInputEngine(recognizer)},
		WithInterimTranscriptCallback(func(transcript string) { interims = append(interims, transcript) }),
	)

	o.ToggleListening()
	flush(t, o)
	recognizer.report(speechinput.EngineEvent{Kind: speechinput.EngineEventInterim, Transcript: "what is"})
	flush(t, o)

	if got := o.InterimTranscript(); got != "what is" {
		t.Fatalf("expected interim %q, got %q", "what is", got)
	}

	o.ToggleListening()
	flush(t, o)

	if got := o.InterimTranscript(); got != "" {
		t.Fatalf("expected interim to be cleared, got %q", got)
	}
	if !equalStrings(interims, []string{"what is", ""}) {
		t.Fatalf("expected interim updates %v, got %v", []string{"what is", ""}, interims)
	}
	if got := o.Status(); got != status.Idle {
		t.Fatalf("expected Idle after stopping, got %s", got)
	}
}

func TestPanickingCallbackResetsState(t *testing.T) {
	engine := &fakeSpeechEngine{}
	panicked := false
	o := startOrchestrator(t,
		[]OrchestratorOption{WithSpeechOutputEngine(engine)},
		WithStatusChangedCallback(func(_, to status.ConversationStatus) {
			if to == status.Speaking && !panicked {
				panicked = true
				panic("callback failed")
			}
		}),
	)

	o.Speak("boom", "u1")
	flush(t, o)

	if !panicked {
		t.Fatalf("expected the callback to panic")
	}
	if got := engine.cancelCount(); got != 1 {
		t.Fatalf("expected speech to be cancelled after the panic, got %d", got)
	}
	if got := o.Status(); got != status.Idle {
		t.Fatalf("expected Idle after reset, got %s", got)
	}

	o.Speak("after", "u2")
	flush(t, o)
	if got := engine.requestCount(); got != 2 {
		t.Fatalf("expected the loop to keep running, got %d requests", got)
	}
}

func TestCloseIsIdempotentAndStopsEverything(t *testing.T) {
	engine := &fakeSpeechEngine{}
	recognizer := &fakeRecognizer{}
	channel := &fakeChannel{}
	o := NewOrchestrator(WithSpeechOutputEngine(engine), WithSpeechInputEngine(recognizer), WithReplyChannel(channel))
	o.Orchestrate(context.Background())

	o.Speak("talking", "u1")
	o.ToggleListening()
	flush(t, o)

	o.Close()
	o.Close()

	if got := recognizer.stopCount(); got != 1 {
		t.Fatalf("expected recognition to be stopped once, got %d", got)
	}
	if got := channel.subscriberCount(); got != 0 {
		t.Fatalf("expected the reply channel to be unsubscribed, got %d subscribers", got)
	}

	o.Speak("ignored", "u2")
	if got := engine.requestCount(); got != 1 {
		t.Fatalf("expected no speech after close, got %d requests", got)
	}
}

func TestCloseBeforeOrchestrate(t *testing.T) {
	o := NewOrchestrator(WithSpeechOutputEngine(&fakeSpeechEngine{}))
	o.Close()
	o.Orchestrate(context.Background())
	o.ToggleListening()

	if got := o.Status(); got != status.Idle {
		t.Fatalf("expected Idle, got %s", got)
	}
}

func TestCancelledContextClosesOrchestrator(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := NewOrchestrator()
	o.Orchestrate(ctx)
	cancel()

	select {
	case <-o.loop.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the event loop to stop after the context was cancelled")
	}
}

func startOrchestrator(t *testing.T, opts []OrchestratorOption, orchestrateOpts ...OrchestrateOption) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(opts...)
	o.Orchestrate(context.Background(), orchestrateOpts...)
	t.Cleanup(o.Close)
	return o
}

// flush waits until everything posted to the loop, including follow-ups
// posted while running, has been handled.
func flush(t *testing.T, o *Orchestrator) {
	t.Helper()
	for range 100 {
		done := make(chan struct{})
		if !o.loop.post("flush", func() { close(done) }) {
			t.Fatalf("expected the event loop to accept work")
		}
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for the event loop")
		}
		if o.loop.pending() == 0 {
			return
		}
	}
	t.Fatalf("expected the event loop to settle")
}

func onLoop(t *testing.T, o *Orchestrator, f func()) {
	t.Helper()
	o.do("test", f)
	flush(t, o)
}

func equalStrings(got, expected []string) bool {
	if len(got) != len(expected) {
		return false
	}
	for i := range got {
		if got[i] != expected[i] {
			return false
		}
	}
	return true
}

type fakeSpeechEngine struct {
	mu       sync.Mutex
	requests []speechoutput.Request
	sinks    []speechoutput.EventSink
	cancels  int
}

func (e *fakeSpeechEngine) Speak(_ context.Context, request speechoutput.Request, sink speechoutput.EventSink) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, request)
	e.sinks = append(e.sinks, sink)
	return nil
}

func (e *fakeSpeechEngine) Cancel() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels++
	return nil
}

// report sends event through the sink of the latest request.
func (e *fakeSpeechEngine) report(event speechoutput.EngineEvent) {
	e.mu.Lock()
	if len(e.sinks) == 0 {
		e.mu.Unlock()
		return
	}
	sink := e.sinks[len(e.sinks)-1]
	e.mu.Unlock()
	sink(event)
}

func (e *fakeSpeechEngine) lastRequest() (speechoutput.Request, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.requests) == 0 {
		return speechoutput.Request{}, false
	}
	return e.requests[len(e.requests)-1], true
}

func (e *fakeSpeechEngine) requestCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

func (e *fakeSpeechEngine) cancelCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancels
}

type fakeRecognizer struct {
	mu     sync.Mutex
	sink   speechinput.EventSink
	starts int
	stops  int
}

func (r *fakeRecognizer) Start(_ context.Context, sink speechinput.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
	r.sink = sink
	return nil
}

func (r *fakeRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	return nil
}

func (r *fakeRecognizer) report(event speechinput.EngineEvent) {
	r.mu.Lock()
	sink := r.sink
	r.mu.Unlock()
	if sink != nil {
		sink(event)
	}
}

func (r *fakeRecognizer) stopCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

type fakeChannel struct {
	mu          sync.Mutex
	sent        []string
	sendErr     error
	nextID      int
	subscribers map[int]func(reply.Snapshot)
}

func (c *fakeChannel) Send(_ context.Context, text string) error {
	c.mu.Lock()
	if c.sendErr != nil {
		c.mu.Unlock()
		return c.sendErr
	}
	c.sent = append(c.sent, text)
	c.mu.Unlock()

	c.publish(reply.Snapshot{Status: reply.StatusSubmitted, Messages: []reply.Message{{Role: reply.RoleUser, Text: text}}})
	return nil
}

func (c *fakeChannel) Subscribe(f func(reply.Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribers == nil {
		c.subscribers = map[int]func(reply.Snapshot){}
	}
	c.nextID++
	id := c.nextID
	c.subscribers[id] = f
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *fakeChannel) publish(snapshot reply.Snapshot) {
	c.mu.Lock()
	subscribers := make([]func(reply.Snapshot), 0, len(c.subscribers))
	for _, f := range c.subscribers {
		subscribers = append(subscribers, f)
	}
	c.mu.Unlock()
	for _, f := range subscribers {
		f(snapshot)
	}
}

func (c *fakeChannel) sentTexts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeChannel) subscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers)
}
