// Package local implements the transcribe.Engine interface using a
// self-hosted Whisper server.
//
// It supports any OpenAI-compatible transcription endpoint (whisper.cpp
// server, faster-whisper) and ahmetoner/whisper-asr-webservice.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/nadzzz/murmur/internal/audio"
	"github.com/nadzzz/murmur/internal/config"
	"github.com/nadzzz/murmur/internal/transcribe"
)

// Engine uses a self-hosted Whisper server.
type Engine struct {
	endpoint        string
	endpointType    string // "openai" or "asr"
	model           string
	defaultLanguage string
	client          *http.Client
}

// New creates a new local engine from config.
func New(cfg config.LocalConfig, language string) *Engine {
	et := cfg.Type
	if et == "" {
		et = "openai"
	}
	return &Engine{
		endpoint:        cfg.Endpoint,
		endpointType:    et,
		model:           cfg.Model,
		defaultLanguage: language,
		client:          &http.Client{},
	}
}

// Name returns the backend identifier.
func (e *Engine) Name() string { return "local" }

// WarmUp pokes the server in the background so a cold model starts loading
// before the first chunk arrives.
func (e *Engine) WarmUp() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := e.Transcribe(ctx, make([]float32, audio.SampleRate/10), nil); err != nil {
			slog.Warn("transcription warm-up failed", "backend", "local", "error", err)
			return
		}
		slog.Debug("transcription backend warmed up", "backend", "local")
	}()
}

// Transcribe sends samples to the local endpoint.
// Supports two flavors:
//   - "openai": OpenAI-compatible API (POST multipart with field "file")
//   - "asr":    whisper-asr-webservice (POST /asr with query params)
func (e *Engine) Transcribe(ctx context.Context, samples []float32, p *transcribe.Params) (string, error) {
	if p == nil {
		p = &transcribe.Params{}
	}
	wav, err := audio.Encode(samples)
	if err != nil {
		return "", err
	}
	switch e.endpointType {
	case "asr":
		return e.transcribeASR(ctx, wav, p)
	default:
		return e.transcribeOpenAI(ctx, wav, p)
	}
}

// Close is a no-op for the local engine.
func (e *Engine) Close() error { return nil }

// transcribeASR handles the whisper-asr-webservice format.
// API: POST /asr?task=transcribe|translate&language=en&output=json
// Body: multipart/form-data with field "audio_file"
func (e *Engine) transcribeASR(ctx context.Context, wav []byte, p *transcribe.Params) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("audio_file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	writer.Close()

	q := make(url.Values)
	q.Set("task", "transcribe")
	if p.Translate {
		q.Set("task", "translate")
	}
	q.Set("output", "json")
	q.Set("encode", "true")
	if lang := e.lang(p); lang != "" {
		q.Set("language", lang)
	}

	reqURL := e.endpoint + "?" + q.Encode()
	slog.Debug("whisper-asr request", "url", reqURL)
	return e.post(ctx, reqURL, body, writer.FormDataContentType())
}

// transcribeOpenAI handles OpenAI-compatible whisper endpoints.
func (e *Engine) transcribeOpenAI(ctx context.Context, wav []byte, p *transcribe.Params) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	if e.model != "" {
		_ = writer.WriteField("model", e.model)
	}
	if lang := e.lang(p); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if p.Translate {
		_ = writer.WriteField("task", "translate")
	}
	_ = writer.WriteField("response_format", "json")
	writer.Close()

	return e.post(ctx, e.endpoint, body, writer.FormDataContentType())
}

func (e *Engine) post(ctx context.Context, reqURL string, body io.Reader, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("local transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("local transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription: %w", err)
	}

	slog.Debug("local transcription complete", "text_length", len(result.Text), "language", result.Language)
	return result.Text, nil
}

func (e *Engine) lang(p *transcribe.Params) string {
	if p.Language != "" {
		return transcribe.NormalizeLanguage(p.Language)
	}
	return e.defaultLanguage
}
