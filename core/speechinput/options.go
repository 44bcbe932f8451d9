package speechinput

import (
	"time"

	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/timers"
)

const (
	DefaultSilenceWindow = 800 * time.Millisecond
	DefaultMinFinalChars = 2
)

type SessionOption func(*Session)

func WithSilenceWindow(window time.Duration) SessionOption {
	return func(s *Session) {
		if window > 0 {
			s.silenceWindow = window
		}
	}
}

// WithMinFinalChars sets how many runes a final transcript needs before it is
// considered for finalization.
func WithMinFinalChars(chars int) SessionOption {
	return func(s *Session) {
		if chars > 0 {
			s.minFinalChars = chars
		}
	}
}

// WithFinalizedCallback registers the receiver of committed utterances.
func WithFinalizedCallback(callback func(transcript string)) SessionOption {
	return func(s *Session) { s.onFinalized = callback }
}

// WithBeforeStartHook registers a hook run right before a session opens.
func WithBeforeStartHook(hook func()) SessionOption {
	return func(s *Session) { s.beforeStart = hook }
}

// WithStateChangedCallback registers a callback invoked after every change of
// the recognition state.
func WithStateChangedCallback(callback func(RecognitionState)) SessionOption {
	return func(s *Session) { s.onStateChanged = callback }
}

func WithDispatcher(dispatch timers.Dispatcher) SessionOption {
	return func(s *Session) {
		if dispatch != nil {
			s.dispatch = dispatch
		}
	}
}

func WithScheduler(scheduler timers.Scheduler) SessionOption {
	return func(s *Session) {
		if scheduler != nil {
			s.scheduler = scheduler
		}
	}
}

func WithEventEmitter(emit func(events.Event)) SessionOption {
	return func(s *Session) {
		if emit != nil {
			s.emit = emit
		}
	}
}
