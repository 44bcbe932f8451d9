package audio

import "context"

// Input is a capture device. Only one capture may run at a time.
type Input interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() EncodingInfo
}

// Output is a playback device with a buffered queue of audio.
type Output interface {
	SendAudio(audio []byte) error
	// Mark calls callback with name once all audio sent before it has
	// played.
	Mark(name string, callback func(string)) error
	ClearBuffer()
	EncodingInfo() EncodingInfo
}
