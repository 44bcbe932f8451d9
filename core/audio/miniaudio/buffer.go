package miniaudio

import "sync"

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

// playbackBuffer holds audio waiting for the device and the marks placed in
// it. Marks fire once the audio before them has been read.
type playbackBuffer struct {
	mu    sync.Mutex
	audio []byte
	marks []playbackMark
}

func (b *playbackBuffer) Write(audio []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = append(b.audio, audio...)
}

func (b *playbackBuffer) Mark(name string, callback func(string)) {
	b.mu.Lock()
	if len(b.audio) == 0 {
		b.mu.Unlock()
		go callback(name)
		return
	}
	b.marks = append(b.marks, playbackMark{name: name, position: len(b.audio), callback: callback})
	b.mu.Unlock()
}

// Read fills out with buffered audio, padding with silence.
func (b *playbackBuffer) Read(out []byte) {
	b.mu.Lock()
	n := copy(out, b.audio)
	clear(out[n:])
	b.audio = b.audio[n:]

	passed := 0
	for i := range b.marks {
		b.marks[i].position -= n
		if b.marks[i].position <= 0 {
			passed++
		}
	}
	toCall := b.marks[:passed:passed]
	b.marks = b.marks[passed:]
	b.mu.Unlock()

	if len(toCall) > 0 {
		go func() {
			for _, mark := range toCall {
				mark.callback(mark.name)
			}
		}()
	}
}

// Clear drops buffered audio and pending marks without firing them.
func (b *playbackBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audio = nil
	b.marks = nil
}
