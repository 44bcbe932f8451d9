// Package deepgram holds the websocket plumbing shared by the Deepgram speech
// engines.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/gorilla/websocket"
)

const APIKeyEnv = "DEEPGRAM_API_KEY"

var ErrMissingAPIKey = errors.New("deepgram api key not found")

// APIKey returns key, falling back to the environment.
func APIKey(key string) (string, error) {
	if key != "" {
		return key, nil
	}
	if key, ok := os.LookupEnv(APIKeyEnv); ok && key != "" {
		return key, nil
	}
	return "", ErrMissingAPIKey
}

// Endpoint joins base with query.
func Endpoint(base string, query url.Values) (string, error) {
	endpoint, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid deepgram url: %w", err)
	}
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}

// Dial opens an authenticated socket. Rejected credentials are reported
// wrapping denied.
func Dial(ctx context.Context, dialer *websocket.Dialer, endpoint, apiKey string, denied error) (*websocket.Conn, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, http.Header{"Authorization": {"Token " + apiKey}})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: deepgram rejected credentials (%s)", denied, resp.Status)
		}
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

// IsNormalClose reports whether err is the socket closing cleanly.
func IsNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
