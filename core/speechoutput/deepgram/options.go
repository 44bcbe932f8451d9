package deepgram

import "github.com/gorilla/websocket"

const (
	defaultURL = "wss://api.deepgram.com/v1/speak"
	// DefaultModel is used when the requested voice has no id.
	DefaultModel = "aura-2-thalia-en"
)

type EngineOption func(*Engine)

// WithAPIKey sets the key. Without it DEEPGRAM_API_KEY is read on every
// request.
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

func WithDefaultModel(model string) EngineOption {
	return func(e *Engine) {
		if model != "" {
			e.defaultModel = model
		}
	}
}
