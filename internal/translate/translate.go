// Package translate records a short utterance and returns it transcribed in
// the speaker's language alongside an English translation.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nadzzz/murmur/internal/transcribe"
)

// AccumulationTag identifies translation audio on the shared capture source.
const AccumulationTag = "translation"

var (
	// ErrNoAudio is returned by Stop when nothing was captured.
	ErrNoAudio = errors.New("no audio captured for translation")
	// ErrBusy is returned by Start when another feature owns the microphone.
	ErrBusy = errors.New("microphone is busy")
)

// Capture is the microphone source shared with meetings.
type Capture interface {
	StartStream() error
	BeginAccumulation(tag string) bool
	EndAccumulation(tag string) []float32
}

// Result pairs the original transcript with its translation.
type Result struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// Translator drives one capture at a time.
type Translator struct {
	capture Capture
	engine  transcribe.Engine
	logger  *slog.Logger
}

// New creates a translator.
func New(capture Capture, engine transcribe.Engine) *Translator {
	return &Translator{
		capture: capture,
		engine:  engine,
		logger:  slog.With("component", "translate"),
	}
}

// Start opens the microphone and begins buffering the utterance.
func (t *Translator) Start() error {
	t.engine.WarmUp()

	if err := t.capture.StartStream(); err != nil {
		return fmt.Errorf("start translation capture: %w", err)
	}
	if !t.capture.BeginAccumulation(AccumulationTag) {
		return ErrBusy
	}
	t.logger.Info("translation capture started")
	return nil
}

// Stop ends the capture and transcribes it. Whisper can only translate into
// English, so for any other target the original text is returned as the
// translation.
func (t *Translator) Stop(ctx context.Context, target string) (*Result, error) {
	samples := t.capture.EndAccumulation(AccumulationTag)
	if len(samples) == 0 {
		return nil, ErrNoAudio
	}
	t.logger.Info("translating capture", "samples", len(samples), "target", target)

	original, err := t.engine.Transcribe(ctx, samples, &transcribe.Params{Translate: false})
	if err != nil {
		return nil, fmt.Errorf("transcribe original: %w", err)
	}
	res := &Result{Original: strings.TrimSpace(original)}

	switch strings.ToLower(strings.TrimSpace(target)) {
	case "en", "english":
		translated, err := t.engine.Transcribe(ctx, samples, &transcribe.Params{Translate: true})
		if err != nil {
			return nil, fmt.Errorf("translate to english: %w", err)
		}
		res.Translated = strings.TrimSpace(translated)
	default:
		res.Translated = res.Original
	}
	return res, nil
}
