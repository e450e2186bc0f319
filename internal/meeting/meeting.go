// Package meeting runs recorded meetings: one active session at a time, a
// background loop that pulls audio from the capture source at a fixed
// cadence, streams it to a WAV file, transcribes each chunk and persists the
// resulting segments.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nadzzz/murmur/internal/audio"
	"github.com/nadzzz/murmur/internal/events"
	"github.com/nadzzz/murmur/internal/store"
	"github.com/nadzzz/murmur/internal/transcribe"
)

// AccumulationTag identifies meeting audio on the shared capture source.
const AccumulationTag = "meetings"

var (
	// ErrAlreadyActive is returned by Start while a session is running.
	ErrAlreadyActive = errors.New("a meeting is already in progress")
	// ErrCaptureUnavailable is returned by Start when the microphone cannot be opened.
	ErrCaptureUnavailable = errors.New("audio capture unavailable")
	// ErrNotFound is returned when a meeting id does not exist.
	ErrNotFound = store.ErrNotFound
)

// Capture is the microphone source shared with other features.
type Capture interface {
	StartStream() error
	BeginAccumulation(tag string) bool
	YieldSamples(tag string) []float32
	EndAccumulation(tag string) []float32
}

// Transcriber turns a chunk of samples into text.
type Transcriber interface {
	WarmUp()
	Transcribe(ctx context.Context, samples []float32, p *transcribe.Params) (string, error)
}

// Gateway persists meetings and transcription history.
type Gateway interface {
	CreateMeeting(ctx context.Context, title string) (int64, string, error)
	AddSegment(ctx context.Context, meetingID int64, speaker string, start, end float64, text string) (int64, error)
	FinalizeMeeting(ctx context.Context, id int64, durationSeconds int64) error
	Meeting(ctx context.Context, id int64) (*store.Meeting, error)
	Meetings(ctx context.Context) ([]store.Meeting, error)
	Segments(ctx context.Context, meetingID int64) ([]store.Segment, error)
	ToggleMeetingFavorite(ctx context.Context, id int64) error
	DeleteMeeting(ctx context.Context, id int64) error
	SaveTranscription(ctx context.Context, samples []float32, text string) (*store.HistoryEntry, error)
	AudioFilePath(name string) string
}

// Emitter broadcasts named events.
type Emitter interface {
	Emit(name string, payload any)
}

// Options tunes the chunk loop.
type Options struct {
	ChunkInterval time.Duration
	SpeakerLabel  string
	Language      string
}

// Details is a meeting with its transcript and resolved recording path.
type Details struct {
	store.Meeting
	Segments  []store.Segment `json:"segments"`
	AudioPath string          `json:"audio_path,omitempty"`
}

// Orchestrator owns the single active meeting session.
type Orchestrator struct {
	capture Capture
	engine  Transcriber
	gateway Gateway
	emitter Emitter
	opts    Options
	logger  *slog.Logger

	mu       sync.Mutex // serializes Start and Stop; guards active
	active   *session
	activeID atomic.Int64 // 0 when idle, readable without mu

	tails sync.WaitGroup
}

// session is the in-memory state of the running meeting.
type session struct {
	id            int64
	started       time.Time
	path          string
	saveToHistory bool
	cancel        context.CancelFunc
	done          chan struct{}

	segMu    sync.Mutex
	segments []store.Segment // advisory mirror; the gateway is authoritative
}

// New creates an orchestrator.
func New(capture Capture, engine Transcriber, gateway Gateway, emitter Emitter, opts Options) *Orchestrator {
	if opts.ChunkInterval <= 0 {
		opts.ChunkInterval = 5 * time.Second
	}
	if opts.SpeakerLabel == "" {
		opts.SpeakerLabel = "Speaker 1"
	}
	return &Orchestrator{
		capture: capture,
		engine:  engine,
		gateway: gateway,
		emitter: emitter,
		opts:    opts,
		logger:  slog.With("component", "meeting"),
	}
}

// Start begins a new meeting and returns its id.
func (o *Orchestrator) Start(ctx context.Context, title string, saveToHistory bool) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.active != nil {
		return 0, ErrAlreadyActive
	}

	id, path, err := o.gateway.CreateMeeting(ctx, title)
	if err != nil {
		return 0, fmt.Errorf("start meeting: %w", err)
	}
	logger := o.logger.With("meeting_id", id)

	if err := o.capture.StartStream(); err != nil {
		o.discard(ctx, id)
		return 0, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	o.engine.WarmUp()

	if !o.capture.BeginAccumulation(AccumulationTag) {
		logger.Warn("capture accumulation already owned by another feature")
		o.discard(ctx, id)
		return 0, fmt.Errorf("%w: microphone is recording for another feature", ErrCaptureUnavailable)
	}

	w, err := audio.Create(path)
	if err != nil {
		o.capture.EndAccumulation(AccumulationTag)
		o.discard(ctx, id)
		return 0, fmt.Errorf("start meeting: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:            id,
		started:       time.Now(),
		path:          path,
		saveToHistory: saveToHistory,
		cancel:        cancel,
		done:          make(chan struct{}),
	}
	go o.run(loopCtx, s, w)

	o.active = s
	o.activeID.Store(id)
	logger.Info("meeting started", "path", path, "save_to_history", saveToHistory)
	o.emitter.Emit(events.SessionStarted, id)
	return id, nil
}

// Stop ends the active meeting. It is a no-op when no meeting is running.
// Stop blocks until the chunk loop has exited.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.active
	if s == nil {
		return nil
	}
	logger := o.logger.With("meeting_id", s.id)

	s.cancel()
	<-s.done

	// Audio captured after the last chunk is dropped.
	if tail := o.capture.EndAccumulation(AccumulationTag); len(tail) > 0 {
		logger.Debug("discarding trailing audio", "samples", len(tail))
	}

	o.active = nil
	o.activeID.Store(0)

	duration := int64(time.Since(s.started).Seconds())
	err := o.gateway.FinalizeMeeting(ctx, s.id, duration)
	if err != nil {
		logger.Error("failed to finalize meeting", "error", err)
	} else {
		logger.Info("meeting stopped", "duration_seconds", duration)
	}
	// The session is over either way.
	o.emitter.Emit(events.SessionStopped, s.id)

	if s.saveToHistory {
		o.tails.Add(1)
		go func() {
			defer o.tails.Done()
			o.saveToHistory(s)
		}()
	}
	if err != nil {
		return fmt.Errorf("stop meeting: %w", err)
	}
	return nil
}

// IsActive reports whether a meeting is running. It never blocks.
func (o *Orchestrator) IsActive() bool {
	return o.activeID.Load() != 0
}

// ActiveID returns the id of the running meeting, if any.
func (o *Orchestrator) ActiveID() (int64, bool) {
	id := o.activeID.Load()
	return id, id != 0
}

// Meetings lists all recorded meetings, newest first.
func (o *Orchestrator) Meetings(ctx context.Context) ([]store.Meeting, error) {
	return o.gateway.Meetings(ctx)
}

// Details returns a meeting with its segments.
func (o *Orchestrator) Details(ctx context.Context, id int64) (*Details, error) {
	m, err := o.gateway.Meeting(ctx, id)
	if err != nil {
		return nil, err
	}
	segs, err := o.gateway.Segments(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &Details{Meeting: *m, Segments: segs}
	if m.FileName != "" {
		d.AudioPath = o.gateway.AudioFilePath(m.FileName)
	}
	return d, nil
}

// ToggleFavorite flips a meeting's favorite flag.
func (o *Orchestrator) ToggleFavorite(ctx context.Context, id int64) error {
	return o.gateway.ToggleMeetingFavorite(ctx, id)
}

// Delete removes a finished meeting and its recording.
func (o *Orchestrator) Delete(ctx context.Context, id int64) error {
	if activeID, ok := o.ActiveID(); ok && activeID == id {
		return fmt.Errorf("delete meeting %d: %w", id, ErrAlreadyActive)
	}
	return o.gateway.DeleteMeeting(ctx, id)
}

// Wait blocks until every pending save-to-history task has finished.
func (o *Orchestrator) Wait() {
	o.tails.Wait()
}

func (o *Orchestrator) discard(ctx context.Context, id int64) {
	if err := o.gateway.DeleteMeeting(ctx, id); err != nil {
		o.logger.Error("failed to remove aborted meeting", "meeting_id", id, "error", err)
	}
}

// run is the chunk loop. It owns w until it returns.
func (o *Orchestrator) run(ctx context.Context, s *session, w *audio.Writer) {
	logger := o.logger.With("meeting_id", s.id)
	defer close(s.done)
	defer func() {
		if err := w.Close(); err != nil {
			logger.Error("failed to finalize recording", "path", s.path, "error", err)
			return
		}
		logger.Debug("recording finalized", "path", s.path, "samples", w.Samples())
	}()

	timer := time.NewTimer(o.opts.ChunkInterval)
	defer timer.Stop()

	var elapsed float64
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if chunk := o.capture.YieldSamples(AccumulationTag); len(chunk) > 0 {
			if err := w.Write(chunk); err != nil {
				logger.Error("failed to write recording chunk", "error", err)
			}
			start := elapsed
			elapsed += audio.Duration(len(chunk))
			// In-flight chunks finish even if Stop arrives mid-transcription.
			o.processChunk(context.WithoutCancel(ctx), s, chunk, start, elapsed)
		}

		timer.Reset(o.opts.ChunkInterval)
	}
}

func (o *Orchestrator) processChunk(ctx context.Context, s *session, chunk []float32, start, end float64) {
	if len(chunk) == 0 {
		return
	}
	logger := o.logger.With("meeting_id", s.id)

	text, err := o.engine.Transcribe(ctx, chunk, &transcribe.Params{Language: o.opts.Language})
	if err != nil {
		logger.Error("chunk transcription failed", "start", start, "end", end, "error", err)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	segID, err := o.gateway.AddSegment(ctx, s.id, o.opts.SpeakerLabel, start, end, text)
	if err != nil {
		logger.Error("failed to persist segment", "start", start, "error", err)
		return
	}
	seg := store.Segment{
		ID:          segID,
		MeetingID:   s.id,
		SpeakerID:   o.opts.SpeakerLabel,
		StartOffset: start,
		EndOffset:   end,
		Text:        text,
	}

	s.segMu.Lock()
	s.segments = append(s.segments, seg)
	s.segMu.Unlock()

	logger.Debug("segment added", "segment_id", segID, "start", start, "end", end)
	o.emitter.Emit(events.SegmentAdded, seg)
}

// saveToHistory folds a finished meeting into transcription history. It runs
// after Stop has returned, so failures are only logged.
func (o *Orchestrator) saveToHistory(s *session) {
	logger := o.logger.With("meeting_id", s.id)
	ctx := context.Background()

	s.segMu.Lock()
	texts := make([]string, 0, len(s.segments))
	for _, seg := range s.segments {
		texts = append(texts, seg.Text)
	}
	s.segMu.Unlock()

	transcript := strings.TrimSpace(strings.Join(texts, " "))
	if transcript == "" {
		logger.Info("meeting produced no transcript, skipping history")
		return
	}

	m, err := o.gateway.Meeting(ctx, s.id)
	if err != nil {
		logger.Error("failed to load meeting for history", "error", err)
		return
	}
	if m.FileName == "" {
		logger.Error("meeting has no recording, skipping history")
		return
	}

	samples, err := audio.ReadFile(o.gateway.AudioFilePath(m.FileName))
	if err != nil {
		logger.Error("failed to read meeting recording", "file", m.FileName, "error", err)
		return
	}

	entry, err := o.gateway.SaveTranscription(ctx, samples, transcript)
	if err != nil {
		logger.Error("failed to save meeting to history", "error", err)
		return
	}
	logger.Info("meeting saved to history", "history_id", entry.ID)
}
