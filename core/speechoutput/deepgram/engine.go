// Package deepgram plays utterances through the Deepgram streaming speech
// API. Each utterance gets its own socket; the synthesized audio is written to
// an [audio.Output] and the utterance ends when the output reaches a mark
// placed after the last frame.
//
// Deepgram voices have a fixed rate and pitch, so only the voice id of a
// request is honored.
package deepgram

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/speechoutput"
	"github.com/koscakluka/ema-voice/internal/deepgram"
)

var _ speechoutput.Engine = (*Engine)(nil)

type Engine struct {
	output       audio.Output
	apiKey       string
	url          string
	defaultModel string
	dialer       *websocket.Dialer

	mu     sync.Mutex
	active *request
}

func NewEngine(output audio.Output, opts ...EngineOption) *Engine {
	e := &Engine{
		output:       output,
		url:          defaultURL,
		defaultModel: DefaultModel,
		dialer:       websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Speak starts synthesis in the background. A request that is still live is
// reported as interrupted.
func (e *Engine) Speak(ctx context.Context, req speechoutput.Request, sink speechoutput.EventSink) error {
	if e.output == nil {
		return fmt.Errorf("no audio output configured")
	}

	apiKey, err := deepgram.APIKey(e.apiKey)
	if err != nil {
		return fmt.Errorf("%w: %w", speechoutput.ErrPermissionDenied, err)
	}

	endpoint, err := e.endpoint(req.Voice)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &request{
		id:     req.Utterance.ID,
		sink:   sink,
		output: e.output,
		cancel: cancel,
	}

	e.mu.Lock()
	previous := e.active
	e.active = r
	e.mu.Unlock()

	if previous != nil {
		previous.interrupt()
	}

	go e.run(ctx, r, endpoint, apiKey, req.Utterance.Text)
	return nil
}

// Cancel aborts the live request and drops its buffered audio. The request
// reports nothing afterwards.
func (e *Engine) Cancel() error {
	e.mu.Lock()
	r := e.active
	e.active = nil
	e.mu.Unlock()

	if r == nil {
		return nil
	}
	r.abort()
	e.output.ClearBuffer()
	return nil
}

func (e *Engine) endpoint(voice speechoutput.Voice) (string, error) {
	encoding, err := deepgram.ConvertEncoding(e.output.EncodingInfo())
	if err != nil {
		return "", fmt.Errorf("invalid output encoding: %w", err)
	}

	model := voice.VoiceID
	if model == "" {
		model = e.defaultModel
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", encoding.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	urlValues.Set("model", model)
	urlValues.Set("container", "none")
	return deepgram.Endpoint(e.url, urlValues)
}

func (e *Engine) release(r *request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active == r {
		e.active = nil
	}
}

func (e *Engine) run(ctx context.Context, r *request, endpoint, apiKey, text string) {
	defer r.cancel()

	ctx, span := tracer.Start(ctx, "synthesize speech")
	defer span.End()

	ws, err := deepgram.Dial(ctx, e.dialer, endpoint, apiKey, speechoutput.ErrPermissionDenied)
	if err != nil {
		span.RecordError(err)
		if r.fail(err) {
			e.release(r)
		}
		return
	}
	if !r.attach(ws) {
		_ = ws.Close()
		return
	}
	defer ws.Close()

	if err := r.send(sendTextMsg(text)); err != nil {
		span.RecordError(err)
		if r.fail(err) {
			e.release(r)
		}
		return
	}
	if err := r.send(flushMsg); err != nil {
		span.RecordError(err)
		if r.fail(err) {
			e.release(r)
		}
		return
	}

	for {
		msgType, msg, err := ws.ReadMessage()
		if err != nil {
			if r.done() || (r.isFlushed() && deepgram.IsNormalClose(err)) {
				return
			}
			err = fmt.Errorf("failed to read from deepgram: %w", err)
			span.RecordError(err)
			if r.fail(err) {
				e.release(r)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if len(msg) == 0 || r.done() {
				continue
			}
			r.reportStarted()
			if err := r.output.SendAudio(msg); err != nil {
				err = fmt.Errorf("failed to play synthesized audio: %w", err)
				span.RecordError(err)
				if r.fail(err) {
					e.release(r)
				}
				return
			}

		case websocket.TextMessage:
			if !r.handleText(msg, func() { e.release(r) }) {
				return
			}
		}
	}
}
