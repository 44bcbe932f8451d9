// Package miniaudio drives the default capture and playback devices through
// miniaudio.
package miniaudio

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-voice/core/audio"
)

var (
	_ audio.Input  = (*Client)(nil)
	_ audio.Output = (*Client)(nil)
)

type Client struct {
	// audioContext is kept only to uninitialize it on close.
	audioContext *malgo.AllocatedContext
	encoding     audio.EncodingInfo
	playbackClient
	captureClient
}

// NewClient initializes both devices and starts playback. Capture starts on
// the first StartCapture.
func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
		encoding:     audio.GetDefaultEncodingInfo(),
	}

	if err := client.playbackClient.Init(audioCtx, client.encoding); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.playbackClient.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx, client.encoding); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(audio []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

func (c *Client) SendAudio(audio []byte) error {
	return c.playbackClient.SendAudio(audio)
}

func (c *Client) Mark(name string, callback func(string)) error {
	return c.playbackClient.Mark(name, callback)
}

func (c *Client) ClearBuffer() {
	c.playbackClient.ClearBuffer()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encoding
}

func (c *Client) Close() error {
	err := errors.Join(c.captureClient.Uninit(), c.playbackClient.Uninit())
	if c.audioContext != nil {
		if uninitErr := c.audioContext.Uninit(); uninitErr != nil {
			err = errors.Join(err, uninitErr)
		}
		c.audioContext.Free()
		c.audioContext = nil
	}
	return err
}
