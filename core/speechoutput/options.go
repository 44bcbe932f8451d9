package speechoutput

import (
	"context"
	"time"

	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/timers"
	"github.com/koscakluka/ema-voice/internal/utils"
)

const (
	MinRate  = 0.5
	MaxRate  = 2.0
	MinPitch = 0.2
	MaxPitch = 2.0

	DefaultRetryBackoff          = 250 * time.Millisecond
	DefaultMaxInterruptedRetries = 3
)

// Voice holds the synthesis parameters passed along with every request.
type Voice struct {
	Rate  float64
	Pitch float64
	// VoiceID selects an engine voice; empty means the engine default.
	VoiceID string
}

func DefaultVoice() Voice {
	return Voice{Rate: 1, Pitch: 1}
}

// Clamped returns the voice with rate and pitch forced into their ranges.
// A zero rate or pitch is treated as the default of 1.
func (v Voice) Clamped() Voice {
	if v.Rate == 0 {
		v.Rate = 1
	}
	if v.Pitch == 0 {
		v.Pitch = 1
	}
	v.Rate = utils.Clamp(v.Rate, MinRate, MaxRate)
	v.Pitch = utils.Clamp(v.Pitch, MinPitch, MaxPitch)
	return v
}

type QueueOption func(*Queue)

// WithDispatcher routes engine events through dispatch before they touch the
// queue state. The dispatched function must run on the goroutine that owns
// the queue.
func WithDispatcher(dispatch timers.Dispatcher) QueueOption {
	return func(q *Queue) {
		if dispatch != nil {
			q.dispatch = dispatch
		}
	}
}

func WithScheduler(scheduler timers.Scheduler) QueueOption {
	return func(q *Queue) {
		if scheduler != nil {
			q.scheduler = scheduler
		}
	}
}

func WithEventEmitter(emit func(events.Event)) QueueOption {
	return func(q *Queue) {
		if emit != nil {
			q.emit = emit
		}
	}
}

// WithBusyChangedCallback registers a callback invoked whenever the queue may
// have become busy or idle.
func WithBusyChangedCallback(callback func(busy bool)) QueueOption {
	return func(q *Queue) { q.onBusyChanged = callback }
}

func WithRetryBackoff(backoff time.Duration) QueueOption {
	return func(q *Queue) {
		if backoff > 0 {
			q.retryBackoff = backoff
		}
	}
}

func WithMaxInterruptedRetries(retries int) QueueOption {
	return func(q *Queue) {
		if retries >= 0 {
			q.maxInterruptedRetries = retries
		}
	}
}

func WithVoice(voice Voice) QueueOption {
	return func(q *Queue) { q.voice = voice.Clamped() }
}

func WithContext(ctx context.Context) QueueOption {
	return func(q *Queue) {
		if ctx != nil {
			q.ctx = ctx
		}
	}
}

type EnqueueOptions struct {
	id            string
	userInitiated bool
}

type EnqueueOption func(*EnqueueOptions)

// WithUtteranceID correlates the utterance with its source, e.g. a message ID.
func WithUtteranceID(id string) EnqueueOption {
	return func(o *EnqueueOptions) { o.id = id }
}

// UserInitiated marks the request as coming directly from a user action.
// Only such requests lift a permission block.
func UserInitiated() EnqueueOption {
	return func(o *EnqueueOptions) { o.userInitiated = true }
}
