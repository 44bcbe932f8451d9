package deepgram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/koscakluka/ema-voice/core/audio"
)

func TestConvertEncoding(t *testing.T) {
	testCases := []struct {
		name      string
		encoding  audio.EncodingInfo
		expected  encodingFormat
		expectErr bool
	}{
		{name: "default", encoding: audio.GetDefaultEncodingInfo(), expected: encodingLinear16},
		{name: "mulaw 8k", encoding: audio.EncodingInfo{SampleRate: 8000, Format: audio.EncodingMulaw}, expected: encodingMulaw},
		{name: "alaw 16k", encoding: audio.EncodingInfo{SampleRate: 16000, Format: audio.EncodingALaw}, expectErr: true},
		{name: "odd sample rate", encoding: audio.EncodingInfo{SampleRate: 22050, Format: audio.EncodingLinear16}, expectErr: true},
		{name: "unknown format", encoding: audio.EncodingInfo{SampleRate: 16000, Format: "opus"}, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ConvertEncoding(tc.encoding)
			if tc.expectErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got.Format != tc.expected || got.SampleRate != tc.encoding.SampleRate {
				t.Fatalf("expected %s at %d, got %+v", tc.expected, tc.encoding.SampleRate, got)
			}
		})
	}
}

func TestDialMapsRejectedCredentials(t *testing.T) {
	denied := errors.New("denied")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token secret" {
			t.Errorf("expected token authorization header, got %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	endpoint := "ws" + strings.TrimPrefix(server.URL, "http")
	_, err := Dial(context.Background(), nil, endpoint, "secret", denied)
	if !errors.Is(err, denied) {
		t.Fatalf("expected denied error, got %v", err)
	}
}

func TestAPIKeyFallsBackToEnvironment(t *testing.T) {
	t.Setenv(APIKeyEnv, "from-env")

	if key, err := APIKey("explicit"); err != nil || key != "explicit" {
		t.Fatalf("expected explicit key, got %q, %v", key, err)
	}
	if key, err := APIKey(""); err != nil || key != "from-env" {
		t.Fatalf("expected env key, got %q, %v", key, err)
	}

	t.Setenv(APIKeyEnv, "")
	if _, err := APIKey(""); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestEndpointEncodesQuery(t *testing.T) {
	got, err := Endpoint("wss://api.deepgram.com/v1/speak", url.Values{"model": {"aura-2-thalia-en"}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "wss://api.deepgram.com/v1/speak?model=aura-2-thalia-en" {
		t.Fatalf("unexpected endpoint %q", got)
	}
}
