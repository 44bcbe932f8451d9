package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-voice/core/speechinput"
)

type controlMessage struct {
	Type string `json:"type"`
}

// stream is one recognition session.
type stream struct {
	sink   speechinput.EventSink
	cancel context.CancelFunc

	mu          sync.Mutex
	ws          *websocket.Conn
	stopped     bool
	lastAudioTs time.Time

	// accumulatedTranscript is only touched by the reading goroutine.
	accumulatedTranscript string

	writeMu sync.Mutex
}

func (s *stream) attach(ws *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.ws = ws
	s.lastAudioTs = time.Now()
	return true
}

func (s *stream) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *stream) report(event speechinput.EngineEvent) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if !stopped {
		s.sink(event)
	}
}

func (s *stream) stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	err := s.write(func(ws *websocket.Conn) error {
		return ws.WriteJSON(controlMessage{Type: string(api.TypeCloseStreamResponse)})
	})
	s.cancel()

	s.mu.Lock()
	ws := s.ws
	s.mu.Unlock()
	if ws != nil {
		_ = ws.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to close deepgram stream: %w", err)
	}
	return nil
}

func (s *stream) sendAudio(audio []byte) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.lastAudioTs = time.Now()
	s.mu.Unlock()

	if err := s.write(func(ws *websocket.Conn) error {
		return ws.WriteMessage(websocket.BinaryMessage, audio)
	}); err != nil {
		logger.Debug("failed to forward audio to deepgram", "error", err)
	}
}

func (s *stream) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			idle := time.Since(s.lastAudioTs) >= keepAliveInterval
			s.mu.Unlock()
			if !idle {
				continue
			}
			if err := s.write(func(ws *websocket.Conn) error {
				return ws.WriteJSON(controlMessage{Type: "KeepAlive"})
			}); err != nil {
				logger.Debug("failed to send keep alive to deepgram", "error", err)
			}
		}
	}
}

func (s *stream) write(f func(*websocket.Conn) error) error {
	s.mu.Lock()
	ws := s.ws
	s.mu.Unlock()
	if ws == nil {
		return fmt.Errorf("websocket connection closed")
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return f(ws)
}

// handleMessage turns a Deepgram result into an engine event. Interim results
// carry the accumulated transcript plus the current hypothesis, final ones the
// accumulated transcript.
func (s *stream) handleMessage(msg []byte) {
	var parsedMsg controlMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Debug("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Debug("failed to unmarshal deepgram results", "error", err)
			return
		}
		if len(msgResp.Channel.Alternatives) == 0 {
			return
		}
		transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		if transcript == "" {
			return
		}

		if msgResp.IsFinal {
			s.accumulatedTranscript = strings.TrimSpace(s.accumulatedTranscript + " " + transcript)
			s.report(speechinput.EngineEvent{Kind: speechinput.EngineEventFinal, Transcript: s.accumulatedTranscript})
			return
		}
		s.report(speechinput.EngineEvent{
			Kind:       speechinput.EngineEventInterim,
			Transcript: strings.TrimSpace(s.accumulatedTranscript + " " + transcript),
		})

	case api.TypeSpeechStartedResponse, api.TypeUtteranceEndResponse:
		logger.Debug("deepgram voice activity", "type", parsedMsg.Type)
	}
}
