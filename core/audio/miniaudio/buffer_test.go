package miniaudio

import (
	"testing"
	"time"
)

func TestPlaybackBufferFiresMarkAfterAudioIsRead(t *testing.T) {
	buffer := playbackBuffer{}
	buffer.Write([]byte{1, 2, 3, 4})

	fired := make(chan string, 1)
	buffer.Mark("utterance-1", func(name string) { fired <- name })

	out := make([]byte, 2)
	buffer.Read(out)
	select {
	case name := <-fired:
		t.Fatalf("expected mark not to fire before its audio played, got %q", name)
	case <-time.After(20 * time.Millisecond):
	}

	buffer.Read(out)
	select {
	case name := <-fired:
		if name != "utterance-1" {
			t.Fatalf("expected utterance-1, got %q", name)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected mark to fire once its audio played")
	}
	if out[0] != 3 || out[1] != 4 {
		t.Fatalf("expected audio to be read in order, got %v", out)
	}
}

func TestPlaybackBufferPadsWithSilence(t *testing.T) {
	buffer := playbackBuffer{}
	buffer.Write([]byte{9})

	out := []byte{7, 7, 7}
	buffer.Read(out)
	if out[0] != 9 || out[1] != 0 || out[2] != 0 {
		t.Fatalf("expected audio followed by silence, got %v", out)
	}
}

func TestPlaybackBufferClearDropsMarks(t *testing.T) {
	buffer := playbackBuffer{}
	buffer.Write([]byte{1, 2})

	fired := make(chan string, 1)
	buffer.Mark("dropped", func(name string) { fired <- name })
	buffer.Clear()
	buffer.Read(make([]byte, 4))

	select {
	case name := <-fired:
		t.Fatalf("expected cleared mark not to fire, got %q", name)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPlaybackBufferMarkOnEmptyBufferFiresImmediately(t *testing.T) {
	buffer := playbackBuffer{}
	fired := make(chan string, 1)
	buffer.Mark("empty", func(name string) { fired <- name })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("expected mark on empty buffer to fire")
	}
}
