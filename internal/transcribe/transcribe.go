// Package transcribe defines the speech-to-text engine used by meetings and
// the voice translator.
//
// murmur ships with two backends: OpenAI (cloud) and Local (a self-hosted
// Whisper-compatible server such as faster-whisper or whisper-asr-webservice).
package transcribe

import (
	"context"
	"strings"
)

// Params controls a single transcription call.
type Params struct {
	// Language is the ISO-639-1 code used to guide recognition. Empty means
	// auto-detect.
	Language string

	// Translate asks the backend to translate the speech to English.
	Translate bool
}

// Engine converts mono 16 kHz samples to text.
type Engine interface {
	// Name returns the backend identifier (e.g., "openai", "local").
	Name() string

	// WarmUp prepares the backend for the first request. It must not block.
	WarmUp()

	// Transcribe converts samples to text. A nil p uses backend defaults.
	Transcribe(ctx context.Context, samples []float32, p *Params) (string, error)

	// Close releases any resources held by the engine.
	Close() error
}

// NormalizeLanguage converts full language names (as returned by OpenAI) to
// ISO-639-1 codes.
func NormalizeLanguage(lang string) string {
	if len(lang) == 2 {
		return strings.ToLower(lang)
	}
	known := map[string]string{
		"english":    "en",
		"french":     "fr",
		"spanish":    "es",
		"german":     "de",
		"italian":    "it",
		"portuguese": "pt",
		"dutch":      "nl",
		"polish":     "pl",
		"russian":    "ru",
		"japanese":   "ja",
		"korean":     "ko",
		"chinese":    "zh",
	}
	if code, ok := known[strings.ToLower(lang)]; ok {
		return code
	}
	return strings.ToLower(lang)
}
