// Package service implements the tts.Synthesizer interface against the
// supervised synthesis service.
//
// API: POST {endpoint}/speak with {"text", "voice", "speed", "model_id"};
// the response body is a WAV file.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/murmur/internal/tts"
)

// Synthesizer talks to the local synthesis service over HTTP.
type Synthesizer struct {
	endpoint string
	client   *http.Client
}

// New creates a synthesizer for the service at endpoint
// (e.g., "http://127.0.0.1:5002").
func New(endpoint string) *Synthesizer {
	return &Synthesizer{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type speakRequest struct {
	Text    string  `json:"text"`
	Voice   string  `json:"voice"`
	Speed   float64 `json:"speed"`
	ModelID string  `json:"model_id,omitempty"`
}

// Synthesize posts text to the service and returns the WAV it produces.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	body, err := json.Marshal(speakRequest{
		Text:    text,
		Voice:   opts.Voice,
		Speed:   opts.Speed,
		ModelID: opts.ModelID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling speak request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/speak", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("tts service error (status %d): %s", resp.StatusCode, respBody)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" || strings.HasPrefix(ct, "application/octet-stream") {
		ct = "audio/wav"
	}
	slog.Debug("tts synthesis complete", "bytes", len(audio), "voice", opts.Voice)
	return &tts.SynthesizeResult{Audio: audio, ContentType: ct}, nil
}

// Close is a no-op; the process is owned by the supervisor.
func (s *Synthesizer) Close() error { return nil }
