// Package audio describes raw audio streams and the device ports speech
// engines read from and write to.
package audio

import "time"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = EncodingLinear16
)

type Format string

const (
	EncodingMulaw    Format = "mulaw"
	EncodingALaw     Format = "alaw"
	EncodingLinear16 Format = "linear16"
)

func (f Format) Name() string {
	return string(f)
}

// ByteSize is the size of one sample, or -1 for unknown formats.
func (f Format) ByteSize() int {
	switch f {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

// EncodingInfo describes a mono stream.
type EncodingInfo struct {
	SampleRate int
	Format     Format
}

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: DefaultFormat}
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	}
	return 0
}

func (e EncodingInfo) BytesPerSecond() int {
	if e.Format.ByteSize() <= 0 {
		return 0
	}
	return e.SampleRate * e.Format.ByteSize()
}

// Duration is the play time of n bytes of audio.
func (e EncodingInfo) Duration(n int) time.Duration {
	perSecond := e.BytesPerSecond()
	if perSecond == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(perSecond)
}

// Silence returns d worth of silent audio.
func (e EncodingInfo) Silence(d time.Duration) []byte {
	n := int(d * time.Duration(e.BytesPerSecond()) / time.Second)
	if size := e.Format.ByteSize(); size > 1 {
		n -= n % size
	}
	chunk := make([]byte, n)
	if value := e.SilenceValue(); value != 0 {
		for i := range chunk {
			chunk[i] = value
		}
	}
	return chunk
}
