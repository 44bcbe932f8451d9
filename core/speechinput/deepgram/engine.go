// Package deepgram recognizes speech through the Deepgram streaming listen
// API, forwarding captured microphone audio for as long as a session is open.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/speechinput"
	"github.com/koscakluka/ema-voice/internal/deepgram"
	"go.opentelemetry.io/otel/attribute"
)

var _ speechinput.Engine = (*Engine)(nil)

type Engine struct {
	input    audio.Input
	apiKey   string
	url      string
	model    string
	language string
	dialer   *websocket.Dialer

	mu     sync.Mutex
	active *stream
}

func NewEngine(input audio.Input, opts ...EngineOption) *Engine {
	e := &Engine{
		input:    input,
		url:      defaultURL,
		model:    DefaultModel,
		language: DefaultLanguage,
		dialer:   websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start connects in the background. Connection failures are reported to sink
// as errors.
func (e *Engine) Start(ctx context.Context, sink speechinput.EventSink) error {
	if e.input == nil {
		return fmt.Errorf("%w: no microphone configured", speechinput.ErrUnavailable)
	}

	apiKey, err := deepgram.APIKey(e.apiKey)
	if err != nil {
		return fmt.Errorf("%w: %w", speechinput.ErrPermissionDenied, err)
	}

	endpoint, err := e.endpoint()
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.active != nil {
		e.mu.Unlock()
		return speechinput.ErrAlreadyActive
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &stream{sink: sink, cancel: cancel}
	e.active = s
	e.mu.Unlock()

	go e.run(ctx, s, endpoint, apiKey)
	return nil
}

// Stop closes the live session. Nothing is reported for it afterwards.
func (e *Engine) Stop() error {
	e.mu.Lock()
	s := e.active
	e.active = nil
	e.mu.Unlock()

	if s == nil {
		return nil
	}

	captureErr := e.input.StopCapture()
	if captureErr != nil {
		captureErr = fmt.Errorf("failed to stop capture: %w", captureErr)
	}
	return errors.Join(captureErr, s.stop())
}

func (e *Engine) endpoint() (string, error) {
	encoding, err := deepgram.ConvertEncoding(e.input.EncodingInfo())
	if err != nil {
		return "", fmt.Errorf("invalid input encoding: %w", err)
	}

	queryParams := url.Values{}
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", e.model)
	queryParams.Set("language", e.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("endpointing", "300")
	return deepgram.Endpoint(e.url, queryParams)
}

// release clears s as the live session and reports whether it still was.
func (e *Engine) release(s *stream) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active != s {
		return false
	}
	e.active = nil
	return true
}

func (e *Engine) run(ctx context.Context, s *stream, endpoint, apiKey string) {
	defer s.cancel()

	ctx, span := tracer.Start(ctx, "recognize speech")
	defer span.End()

	ws, err := deepgram.Dial(ctx, e.dialer, endpoint, apiKey, speechinput.ErrPermissionDenied)
	if err != nil {
		span.RecordError(err)
		if e.release(s) {
			s.report(speechinput.EngineEvent{Kind: speechinput.EngineEventError, Err: err})
		}
		return
	}
	if !s.attach(ws) {
		_ = ws.Close()
		return
	}
	defer ws.Close()

	if err := e.input.StartCapture(ctx, s.sendAudio); err != nil {
		err = fmt.Errorf("failed to start capture: %w", err)
		span.RecordError(err)
		if e.release(s) {
			s.report(speechinput.EngineEvent{Kind: speechinput.EngineEventError, Err: err})
		}
		_ = s.stop()
		return
	}
	if s.isStopped() {
		// stopped while capture was starting
		_ = e.input.StopCapture()
		return
	}

	go s.keepAlive(ctx)

	messages := 0
	for {
		msgType, msg, err := ws.ReadMessage()
		if err != nil {
			span.SetAttributes(attribute.Int("recognition.messages", messages))
			if !e.release(s) {
				return
			}
			if captureErr := e.input.StopCapture(); captureErr != nil {
				logger.Debug("failed to stop capture", "error", captureErr)
			}
			if deepgram.IsNormalClose(err) {
				s.report(speechinput.EngineEvent{Kind: speechinput.EngineEventEnd})
				return
			}
			err = fmt.Errorf("failed to read from deepgram: %w", err)
			span.RecordError(err)
			s.report(speechinput.EngineEvent{Kind: speechinput.EngineEventError, Err: err})
			return
		}
		if msgType == websocket.TextMessage {
			messages++
			s.handleMessage(msg)
		}
	}
}
