// Package speechoutput implements the speech output queue: a FIFO of
// utterances played one at a time through an injected [Engine].
//
// A Queue is not safe for concurrent use. Every method must be called from the
// goroutine that owns it, and engine events reach it through the dispatcher
// configured with [WithDispatcher].
package speechoutput

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/timers"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Utterance is one immutable piece of text waiting to be spoken.
type Utterance struct {
	// ID correlates the utterance with its source. Generated when not given.
	ID   string
	Text string
	// Seq is the monotonic order key, unique within a queue.
	Seq           uint64
	CreatedAt     time.Time
	UserInitiated bool
}

// State is a point-in-time snapshot of the queue.
type State struct {
	Queue      []Utterance
	Active     *Utterance
	IsDraining bool
	Blocked    bool
	RetryDue   bool
}

type queuedUtterance struct {
	Utterance
	interruptions int
}

type Queue struct {
	engine    Engine
	dispatch  timers.Dispatcher
	scheduler timers.Scheduler
	emit      func(events.Event)
	ctx       context.Context

	onBusyChanged func(bool)
	lastBusy      bool

	retryBackoff          time.Duration
	maxInterruptedRetries int
	voice                 Voice

	queue         []queuedUtterance
	active        *queuedUtterance
	activeAttempt uint64
	activeStarted bool
	activeSpan    trace.Span
	draining      bool
	retryTimer    timers.Timer

	pumping bool
	repump  bool

	enabled     bool
	blocked     bool
	noticeShown bool
	closed      bool

	seq      uint64
	attempts uint64
}

func NewQueue(engine Engine, opts ...QueueOption) *Queue {
	q := &Queue{
		engine:                engine,
		dispatch:              func(f func()) { f() },
		emit:                  func(events.Event) {},
		ctx:                   context.Background(),
		retryBackoff:          DefaultRetryBackoff,
		maxInterruptedRetries: DefaultMaxInterruptedRetries,
		voice:                 DefaultVoice(),
		enabled:               true,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.scheduler == nil {
		q.scheduler = timers.NewScheduler(q.dispatch)
	}
	return q
}

// Enqueue appends text to the queue and tries to start playback. It reports
// the queued utterance and whether anything was queued at all.
func (q *Queue) Enqueue(text string, opts ...EnqueueOption) (Utterance, bool) {
	options := EnqueueOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	text = strings.TrimSpace(text)
	if q.closed || text == "" || !q.enabled {
		return Utterance{}, false
	}

	if q.blocked {
		if !options.userInitiated {
			logger.Debug("dropping utterance while speech output is blocked", "length", len(text))
			return Utterance{}, false
		}
		q.blocked = false
		q.noticeShown = false
		logger.Info("speech output unblocked by user request")
	}

	q.seq++
	utterance := Utterance{
		ID:            options.id,
		Text:          text,
		Seq:           q.seq,
		CreatedAt:     time.Now(),
		UserInitiated: options.userInitiated,
	}
	if utterance.ID == "" {
		utterance.ID = uuid.NewString()
	}

	q.queue = append(q.queue, queuedUtterance{Utterance: utterance})
	q.emit(events.NewUtteranceQueued(utterance.ID, utterance.Text))
	q.notifyBusy()
	q.drain()

	return utterance, true
}

// CancelAll drops every queued utterance, cancels the active one and stops
// any pending retry. It is safe to call in any state.
func (q *Queue) CancelAll() {
	dropped := len(q.queue)
	q.queue = nil

	if q.retryTimer != nil {
		q.retryTimer.Stop()
		q.retryTimer = nil
	}

	if q.active != nil {
		dropped++
		if q.engine != nil {
			if err := q.engine.Cancel(); err != nil {
				logger.Warn("failed to cancel speech engine", "error", err)
			}
		}
		q.endActiveSpan("cancelled", nil)
	}
	q.active = nil
	q.activeStarted = false
	q.draining = false

	if dropped > 0 {
		q.emit(events.NewSpeechOutputCancelled(dropped))
	}
	q.notifyBusy()
}

// SetEnabled toggles speech output. Disabling cancels everything and makes
// further enqueues no-ops until re-enabled.
func (q *Queue) SetEnabled(enabled bool) {
	if q.closed {
		return
	}
	if !enabled {
		q.CancelAll()
	}
	q.enabled = enabled
	if enabled {
		q.drain()
	}
}

func (q *Queue) Enabled() bool { return q.enabled }

// SetVoice changes the voice used for utterances started from now on.
func (q *Queue) SetVoice(voice Voice) {
	q.voice = voice.Clamped()
}

func (q *Queue) Voice() Voice { return q.voice }

// Busy reports whether an utterance is active, queued or waiting for retry.
func (q *Queue) Busy() bool {
	return q.active != nil || len(q.queue) > 0 || q.retryTimer != nil
}

func (q *Queue) Blocked() bool { return q.blocked }

func (q *Queue) State() State {
	state := State{
		IsDraining: q.draining,
		Blocked:    q.blocked,
		RetryDue:   q.retryTimer != nil,
	}
	for _, item := range q.queue {
		state.Queue = append(state.Queue, item.Utterance)
	}
	if q.active != nil {
		active := q.active.Utterance
		state.Active = &active
	}
	return state
}

// Close cancels everything. Later calls on the queue are no-ops.
func (q *Queue) Close() {
	if q.closed {
		return
	}
	q.CancelAll()
	q.closed = true
}

// HandleEngineEvent applies an engine report. Events for anything but the
// current attempt of the active utterance are ignored.
func (q *Queue) HandleEngineEvent(event EngineEvent) {
	if q.closed {
		return
	}
	if q.active == nil || q.active.Seq != event.Seq || q.activeAttempt != event.Attempt {
		logger.Debug("ignoring stale speech engine event", "kind", string(event.Kind), "seq", event.Seq, "attempt", event.Attempt)
		return
	}

	switch event.Kind {
	case EngineEventStarted:
		if q.activeStarted {
			return
		}
		q.activeStarted = true
		if q.activeSpan != nil {
			q.activeSpan.AddEvent("playback started")
		}
		q.emit(events.NewUtteranceStarted(q.active.ID))

	case EngineEventEnded:
		id := q.active.ID
		q.endActiveSpan("ended", nil)
		q.release()
		q.emit(events.NewUtteranceEnded(id))
		q.drain()
		q.notifyBusy()

	case EngineEventFailed:
		err := event.Err
		if err == nil {
			err = fmt.Errorf("speech engine reported failure without an error")
		}
		q.fail(err)

	default:
		logger.Warn("unknown speech engine event", "kind", string(event.Kind))
	}
}

func (q *Queue) sinkFor(seq, attempt uint64) EventSink {
	return func(event EngineEvent) {
		event.Seq = seq
		event.Attempt = attempt
		q.dispatch(func() { q.HandleEngineEvent(event) })
	}
}

// drain starts the head of the queue when nothing blocks it. Calls made while
// a drain is in progress, e.g. from an engine that reports synchronously, are
// folded into the running one.
func (q *Queue) drain() {
	if q.pumping {
		q.repump = true
		return
	}
	q.pumping = true
	defer func() { q.pumping = false }()

	for {
		q.repump = false
		q.drainOnce()
		if !q.repump {
			return
		}
	}
}

func (q *Queue) drainOnce() {
	if q.closed || !q.enabled || q.blocked {
		return
	}
	if q.active != nil || q.draining || q.retryTimer != nil || len(q.queue) == 0 {
		return
	}

	item := q.queue[0]
	q.queue = q.queue[1:]
	q.draining = true
	q.active = &item
	q.attempts++
	q.activeAttempt = q.attempts
	q.activeStarted = false

	_, span := tracer.Start(q.ctx, "speak utterance", trace.WithAttributes(
		attribute.Int64("utterance.seq", int64(item.Seq)),
		attribute.Int("utterance.length", len(item.Text)),
		attribute.Int("utterance.interruptions", item.interruptions),
	))
	q.activeSpan = span

	if q.engine == nil {
		q.fail(ErrNoEngine)
		return
	}

	attempt := q.activeAttempt
	err := q.engine.Speak(q.ctx, Request{Utterance: item.Utterance, Voice: q.voice}, q.sinkFor(item.Seq, attempt))
	if err != nil && q.active != nil && q.activeAttempt == attempt {
		q.fail(err)
	}
}

func (q *Queue) fail(err error) {
	item := *q.active
	kind := Classify(err)
	q.endActiveSpan(kind.String(), err)
	q.release()

	switch kind {
	case ErrorKindPermissionDenied:
		dropped := len(q.queue)
		q.queue = nil
		q.blocked = true
		logger.Warn("speech output blocked", "error", err, "dropped", dropped)
		q.emit(events.NewUtteranceFailed(item.ID, kind.String(), err))
		if !q.noticeShown {
			q.noticeShown = true
			q.emit(events.NewNotice(events.NoticeSpeechOutputPermissionDenied, "Speech output is not permitted. Press speak to try again."))
		}
		q.notifyBusy()

	case ErrorKindInterrupted:
		item.interruptions++
		if item.interruptions > q.maxInterruptedRetries {
			logger.Warn("dropping utterance after repeated interruptions", "seq", item.Seq, "interruptions", item.interruptions)
			q.emit(events.NewUtteranceFailed(item.ID, kind.String(), err))
			q.drain()
			q.notifyBusy()
			return
		}
		q.queue = append([]queuedUtterance{item}, q.queue...)
		q.retryTimer = q.scheduler.AfterFunc(q.retryBackoff, func() {
			q.retryTimer = nil
			q.drain()
		})
		q.emit(events.NewUtteranceRetryScheduled(item.ID, item.interruptions))
		q.notifyBusy()

	default:
		logger.Error("speech output failed", "error", err, "seq", item.Seq)
		q.emit(events.NewUtteranceFailed(item.ID, kind.String(), err))
		q.drain()
		q.notifyBusy()
	}
}

// release clears the active slot and the drain lock. Callers notify busy
// listeners once the follow-up state is settled.
func (q *Queue) release() {
	if !q.draining {
		logger.Debug("speech drain lock released without being held")
		return
	}
	q.draining = false
	q.active = nil
	q.activeStarted = false
}

func (q *Queue) endActiveSpan(outcome string, err error) {
	if q.activeSpan == nil {
		return
	}
	q.activeSpan.SetAttributes(attribute.String("utterance.outcome", outcome))
	if err != nil {
		q.activeSpan.RecordError(err)
		q.activeSpan.SetStatus(codes.Error, err.Error())
	}
	q.activeSpan.End()
	q.activeSpan = nil
}

func (q *Queue) notifyBusy() {
	busy := q.Busy()
	if busy == q.lastBusy {
		return
	}
	q.lastBusy = busy
	if q.onBusyChanged != nil {
		q.onBusyChanged(busy)
	}
}
