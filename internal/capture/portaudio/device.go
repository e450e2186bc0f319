// Package portaudio opens the default microphone through PortAudio.
package portaudio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Device is a capture.Device backed by the host's default input.
type Device struct {
	framesPerBuffer int

	mu     sync.Mutex
	stream *portaudio.Stream
}

// New creates a device that delivers framesPerBuffer samples per callback.
func New(framesPerBuffer int) *Device {
	if framesPerBuffer <= 0 {
		framesPerBuffer = 1024
	}
	return &Device{framesPerBuffer: framesPerBuffer}
}

// Open initializes PortAudio and starts a mono input stream.
func (d *Device) Open(sampleRate int, fn func([]float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream != nil {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), d.framesPerBuffer, func(in []float32) {
		fn(in)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("open default stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return fmt.Errorf("start stream: %w", err)
	}
	d.stream = stream
	return nil
}

// Close stops the stream and releases PortAudio.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stream == nil {
		return nil
	}
	stream := d.stream
	d.stream = nil

	_ = stream.Stop()
	err := stream.Close()
	if termErr := portaudio.Terminate(); err == nil {
		err = termErr
	}
	if err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}
