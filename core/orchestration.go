// Package orchestration fuses speech output, speech input and a streaming
// reply channel into one conversation with a single status.
//
// All component state lives on one event loop goroutine. Commands, engine
// events, timer fires and reply updates are posted to it and handled one at a
// time, so the speech output queue, the listening session and the status
// coordinator never run concurrently.
package orchestration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/reply"
	"github.com/koscakluka/ema-voice/core/speechinput"
	"github.com/koscakluka/ema-voice/core/speechoutput"
	"github.com/koscakluka/ema-voice/core/status"
	"github.com/koscakluka/ema-voice/core/timers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Orchestrator struct {
	settings Settings

	speechOutputEngine speechoutput.Engine
	speechInputEngine  speechinput.Engine
	replyChannel       reply.Channel
	scheduler          timers.Scheduler
	queueOptions       []speechoutput.QueueOption

	loop        *eventLoop
	baseContext context.Context
	closeOnce   sync.Once

	mu          sync.Mutex
	unsubscribe func()

	// Owned by the loop goroutine.
	queue           *speechoutput.Queue
	session         *speechinput.Session
	coordinator     *status.Coordinator
	replyPhase      status.ReplyPhase
	lastReplyStatus reply.Status
	lastSpokenText  string
	deferStatus     int
	emit            eventEmitter
	options         OrchestrateOptions

	status    atomic.Int32
	interimMu sync.RWMutex
	interim   string
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		settings:        DefaultSettings(),
		loop:            newEventLoop(),
		baseContext:     context.Background(),
		emit:            noopEventEmitter,
		lastReplyStatus: reply.StatusReady,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.loop.onPanic = o.recoverFromPanic

	queueOptions := []speechoutput.QueueOption{
		speechoutput.WithDispatcher(o.dispatch),
		speechoutput.WithEventEmitter(o.handleEvent),
		speechoutput.WithBusyChangedCallback(func(bool) { o.syncStatus() }),
		speechoutput.WithVoice(o.settings.Voice),
	}
	sessionOptions := []speechinput.SessionOption{
		speechinput.WithDispatcher(o.dispatch),
		speechinput.WithEventEmitter(o.handleEvent),
		speechinput.WithSilenceWindow(o.settings.SilenceWindow),
		speechinput.WithMinFinalChars(o.settings.MinFinalChars),
		speechinput.WithFinalizedCallback(o.onUtteranceFinalized),
		speechinput.WithStateChangedCallback(o.onRecognitionState),
		// listening preempts speaking
		speechinput.WithBeforeStartHook(func() { o.queue.CancelAll() }),
	}
	if o.scheduler != nil {
		queueOptions = append(queueOptions, speechoutput.WithScheduler(o.scheduler))
		sessionOptions = append(sessionOptions, speechinput.WithScheduler(o.scheduler))
	}
	queueOptions = append(queueOptions, o.queueOptions...)

	o.queue = speechoutput.NewQueue(o.speechOutputEngine, queueOptions...)
	o.session = speechinput.NewSession(o.speechInputEngine, sessionOptions...)
	o.coordinator = status.NewCoordinator(o.onStatusChanged)

	return o
}

// Orchestrate starts the event loop. Commands issued before it are queued and
// handled once it runs. Cancelling ctx closes the orchestrator.
//
// Call Orchestrate at most once per orchestrator.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	if o.loop.isClosed() {
		logger.Warn("orchestrator already closed, skipping orchestrate")
		return
	}

	options := OrchestrateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	// configure runs ahead of commands issued before Orchestrate
	o.loop.postFirst("configure", func() {
		o.options = options
		o.emit = newCallbackEventEmitter(options)
		o.baseContext = ctx
		if o.speechOutputEngine == nil {
			o.queue.SetEnabled(false)
			o.emit(events.NewNotice(events.NoticeSpeechOutputUnavailable, "Speech output is not available on this device."))
		}
	})

	if o.replyChannel != nil {
		unsubscribe := o.replyChannel.Subscribe(func(snapshot reply.Snapshot) {
			o.do("apply reply snapshot", func() { o.applyReplySnapshot(snapshot) })
		})
		o.mu.Lock()
		o.unsubscribe = unsubscribe
		o.mu.Unlock()
	}

	if started := o.loop.start(); started {
		go func() {
			select {
			case <-ctx.Done():
				o.Close()
			case <-o.loop.done:
			}
		}()
	}
}

// Close stops listening and speaking, detaches from the reply channel and
// stops the event loop. It must not be called from a callback.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		_, span := tracer.Start(context.Background(), "close orchestrator")
		defer span.End()

		o.mu.Lock()
		unsubscribe := o.unsubscribe
		o.unsubscribe = nil
		o.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}

		teardown := func() {
			o.queue.Close()
			if err := o.session.Close(); err != nil {
				err = fmt.Errorf("failed to close speech input: %w", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}

		if o.loop.started.Load() {
			done := make(chan struct{})
			if o.loop.post("close", func() {
				defer close(done)
				teardown()
			}) {
				<-done
			}
			o.loop.end()
			o.loop.wait()
		} else {
			o.loop.end()
			teardown()
		}

		span.SetAttributes(
			attribute.Int("loop.dropped", o.loop.pending()),
			attribute.Float64("loop.max_queue_delay", time.Duration(o.loop.maxQueueDelay.Load()).Seconds()),
		)
	})
}

// Status returns the derived conversation status. Safe for concurrent use.
func (o *Orchestrator) Status() status.ConversationStatus {
	return status.ConversationStatus(o.status.Load())
}

// InterimTranscript returns the live transcript, empty when not listening.
// Safe for concurrent use.
func (o *Orchestrator) InterimTranscript() string {
	o.interimMu.RLock()
	defer o.interimMu.RUnlock()
	return o.interim
}

// do runs f on the loop as one transition.
func (o *Orchestrator) do(name string, f func()) bool {
	return o.loop.post(name, func() { o.transition(f) })
}

func (o *Orchestrator) dispatch(f func()) {
	o.do("dispatch", f)
}

// transition runs f and publishes the status once f is done, so the
// intermediate states f passes through are never observed.
func (o *Orchestrator) transition(f func()) {
	o.deferStatus++
	func() {
		defer func() { o.deferStatus-- }()
		f()
	}()
	o.syncStatus()
}

func (o *Orchestrator) syncStatus() {
	if o.deferStatus > 0 {
		return
	}
	o.coordinator.Update(status.Signals{
		Listening:  o.session.Active(),
		Reply:      o.replyPhase,
		SpeechBusy: o.queue.Busy(),
	})
}

func (o *Orchestrator) handleEvent(event events.Event) {
	o.emit(event)
}

func (o *Orchestrator) onStatusChanged(from, to status.ConversationStatus) {
	o.status.Store(int32(to))
	logger.Debug("conversation status changed", "from", from.String(), "to", to.String())
	o.emit(events.NewStatusChanged(from.String(), to.String()))
	if o.options.onStatusChanged != nil {
		o.options.onStatusChanged(from, to)
	}
}

func (o *Orchestrator) onRecognitionState(state speechinput.RecognitionState) {
	interim := ""
	if state.IsActive {
		interim = state.InterimText
	}

	o.interimMu.Lock()
	changed := o.interim != interim
	o.interim = interim
	o.interimMu.Unlock()

	if changed && o.options.onInterimTranscript != nil {
		o.options.onInterimTranscript(interim)
	}
	o.syncStatus()
}

func (o *Orchestrator) onUtteranceFinalized(transcript string) {
	o.submit(transcript)
}

// submit starts a new user turn. Whatever is being said is cut off so the
// reply to the new turn is not queued behind the old one.
func (o *Orchestrator) submit(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	ctx, span := tracer.Start(o.baseContext, "submit user turn")
	defer span.End()
	span.SetAttributes(attribute.Int("turn.length", len(text)))

	o.queue.CancelAll()

	if o.replyChannel == nil {
		logger.Warn("dropping user turn, no reply channel configured")
		return
	}

	o.replyPhase = status.ReplySubmitted
	if err := o.replyChannel.Send(ctx, text); err != nil {
		err = fmt.Errorf("failed to send user turn: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("failed to send user turn", "error", err)
		o.replyPhase = status.ReplyError
	}
}

func (o *Orchestrator) applyReplySnapshot(snapshot reply.Snapshot) {
	previous := o.lastReplyStatus
	o.lastReplyStatus = snapshot.Status
	o.replyPhase = replyPhase(snapshot.Status)

	if previous == snapshot.Status {
		return
	}
	o.emit(events.NewReplyStatusChanged(string(snapshot.Status)))

	switch snapshot.Status {
	case reply.StatusReady:
		if previous.Pending() {
			o.speakLatestReply(snapshot)
		}
	case reply.StatusError:
		// queued speech may belong to an earlier reply and is left to drain
		span := trace.SpanFromContext(o.baseContext)
		if snapshot.Err != nil {
			span.RecordError(snapshot.Err)
		}
		logger.Warn("reply channel failed", "error", snapshot.Err)
	}
}

func (o *Orchestrator) speakLatestReply(snapshot reply.Snapshot) {
	message, ok := snapshot.LatestReply()
	if !ok {
		return
	}
	text := strings.TrimSpace(message.Text)
	o.emit(events.NewReplyReady(message.ID, text))
	if text == "" || !o.settings.AutoSpeak {
		return
	}
	// the microphone must not hear the speaker
	if o.session.Active() {
		logger.Debug("not speaking reply while listening", "message_id", message.ID)
		return
	}
	if text == o.lastSpokenText {
		logger.Debug("skipping reply that was already spoken", "message_id", message.ID)
		return
	}

	o.lastSpokenText = text
	o.queue.Enqueue(text, speechoutput.WithUtteranceID(message.ID))
}

func (o *Orchestrator) recoverFromPanic(name string, recovered any) {
	defer func() {
		if again := recover(); again != nil {
			logger.Error("failed to reset after panic", "panic", again)
		}
	}()

	err := fmt.Errorf("%s panicked: %v", name, recovered)
	span := trace.SpanFromContext(o.baseContext)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	o.deferStatus = 0
	o.transition(func() {
		o.queue.CancelAll()
		if stopErr := o.session.Stop(); stopErr != nil {
			logger.Debug("failed to stop speech input after panic", "error", stopErr)
		}
	})
}

func replyPhase(s reply.Status) status.ReplyPhase {
	switch s {
	case reply.StatusSubmitted:
		return status.ReplySubmitted
	case reply.StatusStreaming:
		return status.ReplyStreaming
	case reply.StatusError:
		return status.ReplyError
	default:
		return status.ReplyReady
	}
}
