// Package openai implements the transcribe.Engine interface using OpenAI's
// audio API.
//
// Plain transcription goes to /audio/transcriptions; when translation is
// requested the chunk is sent to /audio/translations, which always answers in
// English.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/nadzzz/murmur/internal/audio"
	"github.com/nadzzz/murmur/internal/config"
	"github.com/nadzzz/murmur/internal/transcribe"
)

// Engine uses the OpenAI audio API.
type Engine struct {
	apiKey   string
	model    string
	baseURL  string
	language string
	client   *http.Client
}

// New creates a new OpenAI engine from config. language is the default used
// when a call does not set one.
func New(cfg config.OpenAIConfig, language string) *Engine {
	return &Engine{
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		language: language,
		client:   &http.Client{},
	}
}

// Name returns the backend identifier.
func (e *Engine) Name() string { return "openai" }

// WarmUp is a no-op; the hosted model is always loaded.
func (e *Engine) WarmUp() {}

// Transcribe uploads samples as a WAV file and returns the recognized text.
func (e *Engine) Transcribe(ctx context.Context, samples []float32, p *transcribe.Params) (string, error) {
	if p == nil {
		p = &transcribe.Params{}
	}
	wav, err := audio.Encode(samples)
	if err != nil {
		return "", err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	_ = writer.WriteField("model", e.model)

	endpoint := e.baseURL + "/audio/transcriptions"
	if p.Translate {
		// The translations endpoint takes no language field.
		endpoint = e.baseURL + "/audio/translations"
	} else if lang := e.lang(p); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	_ = writer.WriteField("response_format", "json")
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}

	slog.Debug("transcription complete", "backend", "openai", "text_length", len(result.Text), "translate", p.Translate)
	return result.Text, nil
}

// Close is a no-op for the OpenAI engine.
func (e *Engine) Close() error { return nil }

func (e *Engine) lang(p *transcribe.Params) string {
	if p.Language != "" {
		return transcribe.NormalizeLanguage(p.Language)
	}
	return e.language
}
