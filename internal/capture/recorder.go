// Package capture accumulates microphone audio for the features that record it.
//
// A Recorder keeps one live input stream open and, while an accumulation is
// active, buffers every sample the device delivers. Exactly one feature owns
// the accumulation at a time, identified by a tag ("meetings", "translation").
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoDevice is returned when the recorder has no input device to open.
var ErrNoDevice = errors.New("no audio input device")

// Device is a source of mono float samples. Open starts delivering buffers to
// fn until Close is called; fn may reuse its argument after returning.
type Device interface {
	Open(sampleRate int, fn func(samples []float32)) error
	Close() error
}

// Recorder implements the capture source used by the meeting orchestrator
// and the translator.
type Recorder struct {
	dev        Device
	sampleRate int
	logger     *slog.Logger

	mu        sync.Mutex
	streaming bool
	tag       string
	buf       []float32
}

// NewRecorder creates a recorder over dev. A nil dev makes StartStream fail
// with ErrNoDevice.
func NewRecorder(dev Device, sampleRate int) *Recorder {
	return &Recorder{
		dev:        dev,
		sampleRate: sampleRate,
		logger:     slog.With("component", "capture"),
	}
}

// StartStream opens the input device if it is not already open.
func (r *Recorder) StartStream() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.streaming {
		return nil
	}
	if r.dev == nil {
		return ErrNoDevice
	}
	if err := r.dev.Open(r.sampleRate, r.push); err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	r.streaming = true
	r.logger.Info("microphone stream started", "sample_rate", r.sampleRate)
	return nil
}

// StopStream closes the input device and drops any accumulation.
func (r *Recorder) StopStream() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.streaming {
		return nil
	}
	r.streaming = false
	r.tag = ""
	r.buf = nil
	if err := r.dev.Close(); err != nil {
		return fmt.Errorf("close input stream: %w", err)
	}
	r.logger.Info("microphone stream stopped")
	return nil
}

// BeginAccumulation starts buffering samples on behalf of tag. It returns
// false if another accumulation is already in progress.
func (r *Recorder) BeginAccumulation(tag string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tag != "" {
		r.logger.Warn("accumulation already in progress", "owner", r.tag, "requested", tag)
		return false
	}
	r.tag = tag
	r.buf = nil
	r.logger.Debug("accumulation started", "tag", tag)
	return true
}

// YieldSamples hands over everything buffered for tag since the previous
// call and keeps accumulating. It returns nil when nothing is buffered or
// tag does not own the accumulation.
func (r *Recorder) YieldSamples(tag string) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tag != tag || len(r.buf) == 0 {
		return nil
	}
	out := r.buf
	r.buf = nil
	return out
}

// EndAccumulation stops buffering for tag and returns what remained. It
// returns nil if tag does not own the accumulation.
func (r *Recorder) EndAccumulation(tag string) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tag != tag {
		return nil
	}
	out := r.buf
	r.tag = ""
	r.buf = nil
	r.logger.Debug("accumulation ended", "tag", tag, "samples", len(out))
	return out
}

// Accumulating reports the tag that currently owns the accumulation, if any.
func (r *Recorder) Accumulating() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tag, r.tag != ""
}

func (r *Recorder) push(samples []float32) {
	r.mu.Lock()
	if r.tag != "" {
		r.buf = append(r.buf, samples...)
	}
	r.mu.Unlock()
}
