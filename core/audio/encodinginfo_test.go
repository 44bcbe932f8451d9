package audio

import (
	"testing"
	"time"
)

func TestEncodingInfoDuration(t *testing.T) {
	testCases := []struct {
		name     string
		info     EncodingInfo
		bytes    int
		expected time.Duration
	}{
		{name: "linear16 one second", info: GetDefaultEncodingInfo(), bytes: 32000, expected: time.Second},
		{name: "linear16 50ms", info: GetDefaultEncodingInfo(), bytes: 1600, expected: 50 * time.Millisecond},
		{name: "mulaw 8k", info: EncodingInfo{SampleRate: 8000, Format: EncodingMulaw}, bytes: 4000, expected: 500 * time.Millisecond},
		{name: "unknown format", info: EncodingInfo{SampleRate: 8000, Format: "opus"}, bytes: 4000, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.Duration(tc.bytes); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestEncodingInfoSilence(t *testing.T) {
	chunk := GetDefaultEncodingInfo().Silence(50 * time.Millisecond)
	if len(chunk) != 1600 {
		t.Fatalf("expected 1600 bytes of silence, got %d", len(chunk))
	}
	for _, b := range chunk {
		if b != 0 {
			t.Fatalf("expected linear16 silence to be zero, got %x", b)
		}
	}

	alaw := EncodingInfo{SampleRate: 8000, Format: EncodingALaw}.Silence(10 * time.Millisecond)
	if len(alaw) != 80 || alaw[0] != 0x55 {
		t.Fatalf("expected 80 bytes of alaw silence, got %d bytes starting with %x", len(alaw), alaw[0])
	}
}

func TestEncodingInfoIsZero(t *testing.T) {
	if !(EncodingInfo{}).IsZero() {
		t.Fatalf("expected empty encoding to be zero")
	}
	if GetDefaultEncodingInfo().IsZero() {
		t.Fatalf("expected default encoding not to be zero")
	}
}
