// Package http implements the HTTP command API for murmur.
//
// The API drives meetings, transcription history, speech synthesis and
// voice translation with JSON requests, streams bus events as NDJSON on
// GET /events and serves the OpenAPI document under /swagger/.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/murmur/docs" // registers the OpenAPI document
	"github.com/nadzzz/murmur/internal/events"
	"github.com/nadzzz/murmur/internal/meeting"
	"github.com/nadzzz/murmur/internal/store"
	"github.com/nadzzz/murmur/internal/supervisor"
	"github.com/nadzzz/murmur/internal/translate"
	"github.com/nadzzz/murmur/internal/tts"
)

// Meetings runs and browses meeting sessions.
type Meetings interface {
	Start(ctx context.Context, title string, saveToHistory bool) (int64, error)
	Stop(ctx context.Context) error
	ActiveID() (int64, bool)
	Meetings(ctx context.Context) ([]store.Meeting, error)
	Details(ctx context.Context, id int64) (*meeting.Details, error)
	ToggleFavorite(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// History exposes transcription and synthesis history.
type History interface {
	History(ctx context.Context) ([]store.HistoryEntry, error)
	HistoryEntry(ctx context.Context, id int64) (*store.HistoryEntry, error)
	ToggleSaved(ctx context.Context, id int64) error
	DeleteHistoryEntry(ctx context.Context, id int64) error
	TTSHistory(ctx context.Context) ([]store.TTSEntry, error)
	ToggleTTSFavorite(ctx context.Context, id int64) error
	DeleteTTSEntry(ctx context.Context, id int64) error
	AudioFilePath(name string) string
}

// Speaker synthesizes speech.
type Speaker interface {
	Speak(ctx context.Context, text string) (*tts.SynthesizeResult, error)
	Voices() []string
}

// Service reports on the supervised synthesis process.
type Service interface {
	IsRunning() bool
	Diagnostics(ctx context.Context) supervisor.Diagnostics
}

// Translator records and translates one utterance.
type Translator interface {
	Start() error
	Stop(ctx context.Context, target string) (*translate.Result, error)
}

// Events streams bus events to subscribers.
type Events interface {
	Subscribe(bufSize int) (string, <-chan events.Event)
	Unsubscribe(id string)
}

// Deps are the collaborators served by the API.
type Deps struct {
	Meetings   Meetings
	History    History
	Speaker    Speaker
	Service    Service
	Translator Translator
	Events     Events
}

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port   int
	deps   Deps
	server *http.Server
	logger *slog.Logger
}

// New creates a new HTTP transport on the given port.
func New(port int, deps Deps) *Transport {
	return &Transport{
		port:   port,
		deps:   deps,
		logger: slog.With("component", "http"),
	}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Handler returns the API routes.
func (t *Transport) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /meetings/start", t.handleStartMeeting)
	mux.HandleFunc("POST /meetings/stop", t.handleStopMeeting)
	mux.HandleFunc("GET /meetings/active", t.handleActiveMeeting)
	mux.HandleFunc("GET /meetings", t.handleListMeetings)
	mux.HandleFunc("GET /meetings/{id}", t.handleMeetingDetails)
	mux.HandleFunc("GET /meetings/{id}/audio", t.handleMeetingAudio)
	mux.HandleFunc("POST /meetings/{id}/favorite", t.handleToggleMeetingFavorite)
	mux.HandleFunc("DELETE /meetings/{id}", t.handleDeleteMeeting)

	mux.HandleFunc("GET /history", t.handleListHistory)
	mux.HandleFunc("GET /history/{id}/audio", t.handleHistoryAudio)
	mux.HandleFunc("POST /history/{id}/saved", t.handleToggleSaved)
	mux.HandleFunc("DELETE /history/{id}", t.handleDeleteHistory)

	mux.HandleFunc("GET /tts/status", t.handleTTSStatus)
	mux.HandleFunc("GET /tts/voices", t.handleTTSVoices)
	mux.HandleFunc("GET /tts/diagnostics", t.handleTTSDiagnostics)
	mux.HandleFunc("POST /tts/speak", t.handleSpeak)
	mux.HandleFunc("GET /tts/history", t.handleTTSHistory)
	mux.HandleFunc("POST /tts/history/{id}/favorite", t.handleToggleTTSFavorite)
	mux.HandleFunc("DELETE /tts/history/{id}", t.handleDeleteTTS)

	mux.HandleFunc("POST /translate/start", t.handleTranslateStart)
	mux.HandleFunc("POST /translate/stop", t.handleTranslateStop)

	mux.HandleFunc("GET /events", t.handleEvents)

	// Swagger UI serves the registered OpenAPI document.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// Listen starts the HTTP server. It blocks until the context is cancelled.
func (t *Transport) Listen(ctx context.Context) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with the daemon.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	t.logger.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		t.logger.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

// errorResponse is the body of every non-2xx JSON reply.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes.
func (t *Transport) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, meeting.ErrAlreadyActive), errors.Is(err, translate.ErrBusy):
		code = http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, meeting.ErrCaptureUnavailable), errors.Is(err, tts.ErrServiceNotRunning):
		code = http.StatusServiceUnavailable
	case errors.Is(err, translate.ErrNoAudio), errors.Is(err, tts.ErrEmptyText):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		t.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id " + strconv.Quote(r.PathValue("id"))})
		return 0, false
	}
	return id, true
}

// decodeOptional decodes a JSON body; an empty body leaves v unchanged.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
		return false
	}
	return true
}

// handleEvents streams bus events, one JSON object per line.
//
// @Summary     Stream events
// @Description Newline-delimited JSON stream of session-started, session-stopped, segment-added,
// @Description history-updated, tts-service-status and tts-service-error events.
// @Tags        events
// @Produce     application/x-ndjson
// @Success     200  {object}  events.Event
// @Router      /events [get]
func (t *Transport) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	id, ch := t.deps.Events.Subscribe(64)
	defer t.deps.Events.Unsubscribe(id)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	t.logger.Debug("event stream opened", "subscriber", id)
	for {
		select {
		case <-r.Context().Done():
			t.logger.Debug("event stream closed", "subscriber", id)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if _, err := w.Write(append(ev.JSON(), '\n')); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
