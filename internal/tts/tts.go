// Package tts turns text into speech through the supervised synthesis
// service and keeps a history of what was spoken.
package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrServiceNotRunning is returned by Speak while the synthesis service is down.
	ErrServiceNotRunning = errors.New("tts service is not running")
	// ErrEmptyText is returned by Speak for blank input.
	ErrEmptyText = errors.New("nothing to speak")
)

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Voice is the speaker id (e.g., "p225" for the bundled VCTK model).
	Voice string

	// Speed scales the speaking rate; 1.0 is normal.
	Speed float64

	// ModelID selects a model on services that host several. Empty uses the
	// service default.
	ModelID string
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Synthesize generates a WAV file from the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the synthesized audio as a WAV file.
	Audio []byte

	// ContentType is the MIME type of the audio (e.g., "audio/wav").
	ContentType string

	// FileName is where the audio was saved in the recordings directory, if
	// saving succeeded.
	FileName string
}

// Status reports whether the synthesis service is up.
type Status interface {
	IsRunning() bool
}

// History records spoken utterances.
type History interface {
	AudioFilePath(name string) string
	SaveTTSEntry(ctx context.Context, text, voice, fileName string) (int64, error)
}

// Speaker runs the speak flow: status gate, synthesis, then saving the audio
// and a history entry.
type Speaker struct {
	synth   Synthesizer
	status  Status
	history History
	opts    func() SynthesizeOpts
	voices  func() []string
	logger  *slog.Logger
}

// NewSpeaker creates a speaker. opts and voices are read on every call so
// configuration changes apply without a restart.
func NewSpeaker(synth Synthesizer, status Status, history History, opts func() SynthesizeOpts, voices func() []string) *Speaker {
	return &Speaker{
		synth:   synth,
		status:  status,
		history: history,
		opts:    opts,
		voices:  voices,
		logger:  slog.With("component", "tts"),
	}
}

// Speak synthesizes text with the configured voice. Failing to save the audio
// or its history entry is logged; the audio is still returned.
func (s *Speaker) Speak(ctx context.Context, text string) (*SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if !s.status.IsRunning() {
		return nil, ErrServiceNotRunning
	}

	opts := s.opts()
	res, err := s.synth.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	s.logger.Info("speech synthesized", "bytes", len(res.Audio), "voice", opts.Voice)

	fileName := fmt.Sprintf("tts-%d-%s.wav", time.Now().Unix(), uuid.NewString()[:8])
	if err := os.WriteFile(s.history.AudioFilePath(fileName), res.Audio, 0o644); err != nil {
		s.logger.Error("failed to save tts audio", "file", fileName, "error", err)
		return res, nil
	}
	res.FileName = fileName

	if _, err := s.history.SaveTTSEntry(ctx, text, opts.Voice, fileName); err != nil {
		s.logger.Error("failed to save tts history entry", "file", fileName, "error", err)
	}
	return res, nil
}

// Voices lists the selectable voice ids.
func (s *Speaker) Voices() []string {
	return s.voices()
}
