// Package portaudio drives the default duplex device through PortAudio with
// blocking reads and writes.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-voice/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

var logger = otelslog.NewLogger("github.com/koscakluka/ema-voice/core/audio/portaudio")

var (
	_ audio.Input  = (*Client)(nil)
	_ audio.Output = (*Client)(nil)
)

type Client struct {
	bufferSize int
	stream     *portaudio.Stream

	in  []int16
	out []int16

	writeMu       sync.Mutex
	leftoverAudio []byte
	// generation is bumped by ClearBuffer so queued writes are dropped.
	generation uint64

	captureMu     sync.Mutex
	captureCancel context.CancelFunc
	captureDone   chan struct{}
}

func NewClient(bufferSize int) (*Client, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

func (c *Client) StartCapture(ctx context.Context, onAudio func(audio []byte)) error {
	c.captureMu.Lock()
	defer c.captureMu.Unlock()
	if c.captureCancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.captureCancel = cancel
	c.captureDone = done

	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if err := c.stream.Read(); err != nil {
				logger.Warn("failed to read from portaudio stream", "error", err)
				continue
			}

			audioBuffer := bytes.Buffer{}
			if err := binary.Write(&audioBuffer, binary.LittleEndian, c.in); err != nil {
				logger.Warn("failed to encode captured audio", "error", err)
				continue
			}
			onAudio(audioBuffer.Bytes())
		}
	}()
	return nil
}

func (c *Client) StopCapture() error {
	c.captureMu.Lock()
	cancel, done := c.captureCancel, c.captureDone
	c.captureCancel, c.captureDone = nil, nil
	c.captureMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// SendAudio writes every complete buffer of audio and keeps the remainder
// for the next call. It blocks while the device plays.
func (c *Client) SendAudio(audio []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	audio = append(c.leftoverAudio, audio...)
	c.leftoverAudio = nil

	bufferSize := c.bufferSize * 2
	for len(audio) >= bufferSize {
		if err := c.write(audio[:bufferSize]); err != nil {
			return err
		}
		audio = audio[bufferSize:]
	}
	c.leftoverAudio = append([]byte(nil), audio...)
	return nil
}

// Mark flushes the remainder padded with silence and calls callback. Writes
// are blocking, so everything before the mark has been handed to the device.
func (c *Client) Mark(name string, callback func(string)) error {
	c.writeMu.Lock()
	generation := c.generation
	var err error
	if len(c.leftoverAudio) > 0 {
		chunk := make([]byte, c.bufferSize*2)
		copy(chunk, c.leftoverAudio)
		c.leftoverAudio = nil
		err = c.write(chunk)
	}
	c.writeMu.Unlock()

	if err != nil {
		return err
	}
	go func() {
		c.writeMu.Lock()
		cleared := generation != c.generation
		c.writeMu.Unlock()
		if !cleared {
			callback(name)
		}
	}()
	return nil
}

func (c *Client) ClearBuffer() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.leftoverAudio = nil
	c.generation++
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}

func (c *Client) Close() error {
	_ = c.StopCapture()
	if err := c.stream.Close(); err != nil {
		return fmt.Errorf("failed to close portaudio stream: %w", err)
	}
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate portaudio: %w", err)
	}
	return nil
}

func (c *Client) write(chunk []byte) error {
	if err := binary.Read(bytes.NewReader(chunk), binary.LittleEndian, c.out); err != nil {
		return fmt.Errorf("failed to decode playback audio: %w", err)
	}
	if err := c.stream.Write(); err != nil {
		return fmt.Errorf("failed to write to portaudio stream: %w", err)
	}
	return nil
}
