package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/audio"
	"github.com/koscakluka/ema-voice/core/speechoutput"
)

// request is the lifecycle of one utterance. It reports at most one started
// and one terminal event.
type request struct {
	id     string
	sink   speechoutput.EventSink
	output audio.Output
	cancel context.CancelFunc

	mu       sync.Mutex
	ws       *websocket.Conn
	started  bool
	flushed  bool
	finished bool

	writeMu sync.Mutex
}

func (r *request) attach(ws *websocket.Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return false
	}
	r.ws = ws
	return true
}

func (r *request) done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

func (r *request) isFlushed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushed
}

func (r *request) reportStarted() {
	r.mu.Lock()
	if r.started || r.finished {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()
	r.sink(speechoutput.EngineEvent{Kind: speechoutput.EngineEventStarted})
}

// finish reports a terminal event unless one was already reported.
func (r *request) finish(event speechoutput.EngineEvent) bool {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return false
	}
	r.finished = true
	r.mu.Unlock()

	r.sink(event)
	return true
}

func (r *request) fail(err error) bool {
	return r.finish(speechoutput.EngineEvent{Kind: speechoutput.EngineEventFailed, Err: err})
}

func (r *request) interrupt() {
	if r.fail(fmt.Errorf("%w: superseded by a new request", speechoutput.ErrInterrupted)) {
		r.close()
	}
}

func (r *request) abort() {
	r.mu.Lock()
	alreadyFinished := r.finished
	r.finished = true
	r.mu.Unlock()
	if !alreadyFinished {
		r.close()
	}
}

func (r *request) close() {
	if err := r.send(clearMsg); err != nil {
		logger.Debug("failed to clear deepgram request", "error", err)
	}
	if err := r.send(closeMsg); err != nil {
		logger.Debug("failed to close deepgram request", "error", err)
	}
	r.cancel()

	r.mu.Lock()
	ws := r.ws
	r.mu.Unlock()
	if ws != nil {
		_ = ws.Close()
	}
}

// handleText processes a control message. It reports false when reading
// should stop.
func (r *request) handleText(msg []byte, release func()) bool {
	var parsedMsg incomingMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Debug("failed to unmarshal deepgram message", "error", err)
		return true
	}

	switch parsedMsg.Type {
	case incomingFlushed:
		r.mu.Lock()
		r.flushed = true
		r.mu.Unlock()

		// started is still owed when no audio came back
		r.reportStarted()
		if err := r.output.Mark(r.id, func(string) {
			if r.finish(speechoutput.EngineEvent{Kind: speechoutput.EngineEventEnded}) {
				release()
			}
		}); err != nil {
			if r.fail(fmt.Errorf("failed to mark end of utterance: %w", err)) {
				release()
			}
			return false
		}
		if err := r.send(closeMsg); err != nil {
			logger.Debug("failed to close deepgram request", "error", err)
		}
	case incomingWarning:
		logger.Warn("deepgram warning", "description", parsedMsg.Description, "message", parsedMsg.WarnMsg)
	case incomingMetadata, incomingCleared:
	default:
		logger.Debug("unknown deepgram message", "type", parsedMsg.Type)
	}
	return true
}

func (r *request) send(msg any) error {
	r.mu.Lock()
	ws := r.ws
	r.mu.Unlock()
	if ws == nil {
		return fmt.Errorf("websocket connection closed")
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	if err := ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to websocket: %w", err)
	}
	return nil
}
