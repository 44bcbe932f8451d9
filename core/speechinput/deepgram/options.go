package deepgram

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultURL      = "wss://api.deepgram.com/v1/listen"
	DefaultModel    = "nova-3"
	DefaultLanguage = "en-US"

	keepAliveInterval = 5 * time.Second
)

type EngineOption func(*Engine)

// WithAPIKey sets the key. Without it DEEPGRAM_API_KEY is read on every
// start.
func WithAPIKey(apiKey string) EngineOption {
	return func(e *Engine) {
		e.apiKey = apiKey
	}
}

func WithURL(url string) EngineOption {
	return func(e *Engine) {
		if url != "" {
			e.url = url
		}
	}
}

func WithDialer(dialer *websocket.Dialer) EngineOption {
	return func(e *Engine) {
		if dialer != nil {
			e.dialer = dialer
		}
	}
}

func WithModel(model string) EngineOption {
	return func(e *Engine) {
		if model != "" {
			e.model = model
		}
	}
}

func WithLanguage(language string) EngineOption {
	return func(e *Engine) {
		if language != "" {
			e.language = language
		}
	}
}
