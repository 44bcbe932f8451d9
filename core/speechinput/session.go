// Package speechinput turns recognition engine events into one debounced,
// finalized user utterance per listening session.
//
// A Session is not safe for concurrent use. Every method must be called from
// the goroutine that owns it, and engine events reach it through the
// dispatcher configured with [WithDispatcher].
package speechinput

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/koscakluka/ema-voice/core/events"
	"github.com/koscakluka/ema-voice/core/timers"
	"github.com/koscakluka/ema-voice/internal/utils"
	"go.opentelemetry.io/otel/attribute"
)

// RecognitionState is a point-in-time snapshot of the listening session.
type RecognitionState struct {
	IsActive    bool
	InterimText string
	// PendingFinal is the latest accepted final transcript waiting for the
	// silence window to pass.
	PendingFinal    string
	HasPendingFinal bool
	// EngineEnded is set when the engine ended while a final was pending.
	EngineEnded bool
}

type Session struct {
	engine    Engine
	dispatch  timers.Dispatcher
	scheduler timers.Scheduler
	emit      func(events.Event)

	silenceWindow time.Duration
	minFinalChars int

	onFinalized    func(string)
	beforeStart    func()
	onStateChanged func(RecognitionState)

	state     RecognitionState
	timer     timers.Timer
	session   uint64
	startedAt time.Time

	unavailableNoticeShown bool
	permissionNoticeShown  bool
	closed                 bool
}

// NewSession creates a session around engine. A nil engine means recognition
// is not available on this device.
func NewSession(engine Engine, opts ...SessionOption) *Session {
	s := &Session{
		engine:        engine,
		dispatch:      func(f func()) { f() },
		emit:          func(events.Event) {},
		silenceWindow: DefaultSilenceWindow,
		minFinalChars: DefaultMinFinalChars,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scheduler == nil {
		s.scheduler = timers.NewScheduler(s.dispatch)
	}
	return s
}

func (s *Session) Available() bool { return s.engine != nil }

func (s *Session) Active() bool { return s.state.IsActive }

func (s *Session) State() RecognitionState { return s.state }

// Start opens a new recognition session.
func (s *Session) Start(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.engine == nil {
		if !s.unavailableNoticeShown {
			s.unavailableNoticeShown = true
			s.emit(events.NewNotice(events.NoticeSpeechInputUnavailable, "Speech recognition is not available on this device."))
		}
		return ErrUnavailable
	}
	if s.state.IsActive {
		return ErrAlreadyActive
	}

	if s.beforeStart != nil {
		s.beforeStart()
	}

	s.session++
	s.state = RecognitionState{IsActive: true}
	s.startedAt = time.Now()

	if err := s.engine.Start(ctx, s.sinkFor(s.session)); err != nil {
		s.teardown("start failed")
		s.noticePermission(err)
		return fmt.Errorf("failed to start speech recognition: %w", err)
	}

	s.emit(events.NewRecognitionStarted())
	s.notifyState()
	return nil
}

// Stop ends the current session and discards any pending final. It is a
// no-op when no session is active.
func (s *Session) Stop() error {
	if !s.state.IsActive {
		return nil
	}

	err := s.engine.Stop()
	s.teardown("stopped")
	if err != nil {
		return fmt.Errorf("failed to stop speech recognition: %w", err)
	}
	return nil
}

// Close stops the session. Later calls and engine events are ignored.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	err := s.Stop()
	s.closed = true
	return err
}

// HandleEngineEvent applies an engine report. Events from sessions other than
// the active one are ignored.
func (s *Session) HandleEngineEvent(event EngineEvent) {
	if s.closed || !s.state.IsActive || event.Session != s.session {
		logger.Debug("ignoring stale speech recognition event", "kind", string(event.Kind), "session", event.Session)
		return
	}

	switch event.Kind {
	case EngineEventInterim:
		s.state.InterimText = event.Transcript
		s.emit(events.NewTranscriptInterimUpdated(event.Transcript))
		s.notifyState()

	case EngineEventFinal:
		transcript := strings.TrimSpace(event.Transcript)
		if utils.RuneLen(transcript) < s.minFinalChars {
			logger.Debug("ignoring short final transcript", "length", utils.RuneLen(transcript))
			return
		}

		s.state.PendingFinal = transcript
		s.state.HasPendingFinal = true
		s.state.InterimText = transcript
		s.rescheduleFinalize()
		s.emit(events.NewTranscriptFinalPending(transcript))
		s.notifyState()

	case EngineEventError:
		err := event.Err
		if err == nil {
			err = errors.New("speech recognition failed")
		}
		logger.Warn("speech recognition failed", "error", err)
		if stopErr := s.engine.Stop(); stopErr != nil {
			logger.Debug("failed to stop speech recognition after error", "error", stopErr)
		}
		s.teardown("error")
		s.emit(events.NewRecognitionFailed(err))
		s.noticePermission(err)

	case EngineEventEnd:
		if s.state.HasPendingFinal {
			s.state.EngineEnded = true
			return
		}
		s.teardown("ended")

	default:
		logger.Warn("unknown speech recognition event", "kind", string(event.Kind))
	}
}

func (s *Session) sinkFor(session uint64) EventSink {
	return func(event EngineEvent) {
		event.Session = session
		s.dispatch(func() { s.HandleEngineEvent(event) })
	}
}

func (s *Session) rescheduleFinalize() {
	if s.timer != nil {
		s.timer.Stop()
	}
	session := s.session
	s.timer = s.scheduler.AfterFunc(s.silenceWindow, func() {
		s.finalize(session)
	})
}

func (s *Session) finalize(session uint64) {
	if s.closed || session != s.session || !s.state.IsActive || !s.state.HasPendingFinal {
		return
	}
	s.timer = nil

	_, span := tracer.Start(context.Background(), "finalize utterance")
	defer span.End()

	transcript := s.state.PendingFinal
	span.SetAttributes(
		attribute.Int("utterance.length", len(transcript)),
		attribute.Float64("utterance.listening_time", time.Since(s.startedAt).Seconds()),
		attribute.Bool("utterance.engine_ended", s.state.EngineEnded),
	)

	if !s.state.EngineEnded {
		if err := s.engine.Stop(); err != nil {
			span.RecordError(err)
			logger.Debug("failed to stop speech recognition after finalizing", "error", err)
		}
	}
	s.teardown("finalized")

	s.emit(events.NewUtteranceFinalized(transcript))
	if s.onFinalized != nil {
		s.onFinalized(transcript)
	}
}

// teardown resets the recognition state. Clearing the active flag also drops
// the pending final and its timer.
func (s *Session) teardown(reason string) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	wasActive := s.state.IsActive
	s.state = RecognitionState{}
	if wasActive {
		s.emit(events.NewRecognitionStopped(reason))
		s.notifyState()
	}
}

func (s *Session) noticePermission(err error) {
	if !errors.Is(err, ErrPermissionDenied) || s.permissionNoticeShown {
		return
	}
	s.permissionNoticeShown = true
	s.emit(events.NewNotice(events.NoticeSpeechInputPermissionDenied, "Microphone access was denied."))
}

func (s *Session) notifyState() {
	if s.onStateChanged != nil {
		s.onStateChanged(s.state)
	}
}
