package meeting

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nadzzz/murmur/internal/audio"
	"github.com/nadzzz/murmur/internal/capture"
	"github.com/nadzzz/murmur/internal/events"
	"github.com/nadzzz/murmur/internal/store"
	"github.com/nadzzz/murmur/internal/transcribe"
	"github.com/nadzzz/murmur/internal/translate"
)

const testInterval = 10 * time.Millisecond

// fakeCapture hands out one queued chunk per YieldSamples call.
type fakeCapture struct {
	mu       sync.Mutex
	startErr error
	tag      string
	chunks   [][]float32
}

func (c *fakeCapture) StartStream() error { return c.startErr }

func (c *fakeCapture) BeginAccumulation(tag string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag != "" {
		return false
	}
	c.tag = tag
	return true
}

func (c *fakeCapture) YieldSamples(tag string) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag != tag || len(c.chunks) == 0 {
		return nil
	}
	next := c.chunks[0]
	c.chunks = c.chunks[1:]
	return next
}

func (c *fakeCapture) EndAccumulation(tag string) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag == tag {
		c.tag = ""
	}
	return nil
}

func (c *fakeCapture) accumulating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tag != ""
}

// fakeEngine returns queued texts, then empty strings.
type fakeEngine struct {
	mu      sync.Mutex
	texts   []string
	err     error
	warmed  int
	lastLen int
}

func (e *fakeEngine) Name() string { return "fake" }
func (e *fakeEngine) Close() error { return nil }

func (e *fakeEngine) WarmUp() {
	e.mu.Lock()
	e.warmed++
	e.mu.Unlock()
}

func (e *fakeEngine) Transcribe(_ context.Context, samples []float32, _ *transcribe.Params) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastLen = len(samples)
	if e.err != nil {
		return "", e.err
	}
	if len(e.texts) == 0 {
		return "", nil
	}
	next := e.texts[0]
	e.texts = e.texts[1:]
	return next, nil
}

func (e *fakeEngine) pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.texts)
}

// flakyGateway fails selected writes and forwards everything else.
type flakyGateway struct {
	*store.Store
	mu          sync.Mutex
	addErr      error
	finalizeErr error
	addCalls    atomic.Int32
}

func (g *flakyGateway) AddSegment(ctx context.Context, meetingID int64, speaker string, start, end float64, text string) (int64, error) {
	g.addCalls.Add(1)
	g.mu.Lock()
	err := g.addErr
	g.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return g.Store.AddSegment(ctx, meetingID, speaker, start, end, text)
}

func (g *flakyGateway) FinalizeMeeting(ctx context.Context, id int64, durationSeconds int64) error {
	if g.finalizeErr != nil {
		return g.finalizeErr
	}
	return g.Store.FinalizeMeeting(ctx, id, durationSeconds)
}

// micDevice stands in for the audio input device of a real capture.Recorder.
type micDevice struct {
	mu sync.Mutex
	fn func([]float32)
}

func (d *micDevice) Open(_ int, fn func([]float32)) error {
	d.mu.Lock()
	d.fn = fn
	d.mu.Unlock()
	return nil
}

func (d *micDevice) Close() error { return nil }

func (d *micDevice) feed(samples []float32) {
	d.mu.Lock()
	fn := d.fn
	d.mu.Unlock()
	fn(samples)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEmitter) Emit(name string, _ any) {
	r.mu.Lock()
	r.events = append(r.events, name)
	r.mu.Unlock()
}

func (r *recordingEmitter) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == name {
			n++
		}
	}
	return n
}

type harness struct {
	orch    *Orchestrator
	capture *fakeCapture
	engine  *fakeEngine
	store   *store.Store
	emitter *recordingEmitter
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir(), store.Options{Retention: "never"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newHarness(t *testing.T, chunks [][]float32, texts []string) *harness {
	t.Helper()
	return newHarnessWith(t, newStore(t), nil, chunks, texts)
}

// newHarnessWith wires the orchestrator to gw when it is non-nil.
func newHarnessWith(t *testing.T, st *store.Store, gw Gateway, chunks [][]float32, texts []string) *harness {
	t.Helper()
	h := &harness{
		capture: &fakeCapture{chunks: chunks},
		engine:  &fakeEngine{texts: texts},
		store:   st,
		emitter: &recordingEmitter{},
	}
	if gw == nil {
		gw = st
	}
	h.orch = New(h.capture, h.engine, gw, h.emitter, Options{ChunkInterval: testInterval})
	return h
}

func second() []float32 {
	return make([]float32, audio.SampleRate)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartRejectsSecondSession(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil)

	id, err := h.orch.Start(ctx, "standup", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := h.orch.Start(ctx, "other", false); !errors.Is(err, ErrAlreadyActive) {
			t.Fatalf("start #%d: got %v, want ErrAlreadyActive", i+2, err)
		}
	}
	if got, ok := h.orch.ActiveID(); !ok || got != id {
		t.Errorf("active id = %d, %v; want %d", got, ok, id)
	}
	if n := h.emitter.count(events.SessionStarted); n != 1 {
		t.Errorf("session-started emitted %d times, want 1", n)
	}

	if err := h.orch.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStopWhenIdle(t *testing.T) {
	h := newHarness(t, nil, nil)
	for i := 0; i < 2; i++ {
		if err := h.orch.Stop(context.Background()); err != nil {
			t.Fatalf("stop: %v", err)
		}
	}
	if n := h.emitter.count(events.SessionStopped); n != 0 {
		t.Errorf("session-stopped emitted %d times on idle stop", n)
	}
}

func TestStartStopFinalizes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, [][]float32{second()}, []string{"hello"})

	began := time.Now()
	id, err := h.orch.Start(ctx, "", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !h.orch.IsActive() || !h.capture.accumulating() {
		t.Fatal("session not active after start")
	}
	waitFor(t, "first segment", func() bool {
		segs, _ := h.store.Segments(ctx, id)
		return len(segs) == 1
	})

	if err := h.orch.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	wall := time.Since(began)

	if h.orch.IsActive() {
		t.Error("still active after stop")
	}
	if h.capture.accumulating() {
		t.Error("accumulation not ended by stop")
	}
	m, err := h.store.Meeting(ctx, id)
	if err != nil {
		t.Fatalf("meeting: %v", err)
	}
	if m.EndTimestamp == nil {
		t.Error("meeting has no end timestamp")
	}
	if m.DurationSeconds < 0 || time.Duration(m.DurationSeconds)*time.Second > wall+testInterval {
		t.Errorf("duration %ds outside [0, %v]", m.DurationSeconds, wall+testInterval)
	}
	if n := h.emitter.count(events.SessionStopped); n != 1 {
		t.Errorf("session-stopped emitted %d times, want 1", n)
	}

	samples, err := audio.ReadFile(h.store.AudioFilePath(m.FileName))
	if err != nil {
		t.Fatalf("read recording: %v", err)
	}
	if len(samples) != audio.SampleRate {
		t.Errorf("recording has %d samples, want %d", len(samples), audio.SampleRate)
	}
}

func TestSilenceProducesNoSegments(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, [][]float32{second(), second(), second()}, []string{"", "   ", ""})

	id, err := h.orch.Start(ctx, "quiet", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "chunks consumed", func() bool {
		h.capture.mu.Lock()
		defer h.capture.mu.Unlock()
		return len(h.capture.chunks) == 0
	})
	time.Sleep(3 * testInterval)
	if err := h.orch.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	segs, _ := h.store.Segments(ctx, id)
	if len(segs) != 0 {
		t.Errorf("silent meeting persisted %d segments", len(segs))
	}
	if n := h.emitter.count(events.SegmentAdded); n != 0 {
		t.Errorf("segment-added emitted %d times", n)
	}
}

func TestTranscriptionFailureIsSkipped(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, [][]float32{second()}, nil)
	h.engine.err = errors.New("backend unavailable")

	id, err := h.orch.Start(ctx, "", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "chunk consumed", func() bool {
		h.capture.mu.Lock()
		defer h.capture.mu.Unlock()
		return len(h.capture.chunks) == 0
	})
	if !h.orch.IsActive() {
		t.Fatal("loop died after a transcription failure")
	}
	if err := h.orch.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if segs, _ := h.store.Segments(ctx, id); len(segs) != 0 {
		t.Errorf("segments = %+v", segs)
	}
}

func TestSaveToHistory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, [][]float32{second(), second()}, []string{"hello", "world"})

	id, err := h.orch.Start(ctx, "retro", true)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "two segments", func() bool {
		segs, _ := h.store.Segments(ctx, id)
		return len(segs) == 2
	})

	segs, _ := h.store.Segments(ctx, id)
	if segs[0].StartOffset != 0 || segs[0].EndOffset != 1 || segs[1].StartOffset != 1 || segs[1].EndOffset != 2 {
		t.Errorf("offsets = [%v,%v) [%v,%v)", segs[0].StartOffset, segs[0].EndOffset, segs[1].StartOffset, segs[1].EndOffset)
	}
	if segs[0].SpeakerID != "Speaker 1" {
		t.Errorf("speaker = %q", segs[0].SpeakerID)
	}

	if err := h.orch.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	h.orch.Wait()

	history, err := h.store.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d entries, want 1", len(history))
	}
	if history[0].Text != "hello world" {
		t.Errorf("transcript = %q, want %q", history[0].Text, "hello world")
	}
}

func TestSaveToHistorySkipsEmptyTranscript(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil)

	if _, err := h.orch.Start(ctx, "", true); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.orch.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	h.orch.Wait()

	if history, _ := h.store.History(ctx); len(history) != 0 {
		t.Errorf("history = %+v, want none", history)
	}
}

func TestStartCaptureUnavailable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil, nil)
	h.capture.startErr = errors.New("no microphone")

	if _, err := h.orch.Start(ctx, "", false); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("start: got %v, want ErrCaptureUnavailable", err)
	}
	if h.orch.IsActive() {
		t.Error("active after failed start")
	}
	if meetings, _ := h.store.Meetings(ctx); len(meetings) != 0 {
		t.Errorf("failed start left %d meeting records", len(meetings))
	}
}

func TestDetailsAndDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, [][]float32{second()}, []string{"agenda"})

	if _, err := h.orch.Details(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("details of missing meeting: got %v, want ErrNotFound", err)
	}

	id, err := h.orch.Start(ctx, "planning", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.orch.Delete(ctx, id); !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("delete active meeting: got %v, want ErrAlreadyActive", err)
	}
	waitFor(t, "segment", func() bool {
		segs, _ := h.store.Segments(ctx, id)
		return len(segs) == 1
	})
	if err := h.orch.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	d, err := h.orch.Details(ctx, id)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if d.Title != "planning" || len(d.Segments) != 1 || d.AudioPath == "" {
		t.Errorf("details = %+v", d)
	}

	if err := h.orch.ToggleFavorite(ctx, id); err != nil {
		t.Fatalf("toggle favorite: %v", err)
	}
	if err := h.orch.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.orch.Details(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("details after delete: got %v, want ErrNotFound", err)
	}
}

func TestSegmentPersistFailureKeepsLoopRunning(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	gw := &flakyGateway{Store: st, addErr: errors.New("disk full")}
	h := newHarnessWith(t, st, gw, [][]float32{second(), second()}, []string{"one", "two"})

	id, err := h.orch.Start(ctx, "", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "both segment writes", func() bool { return gw.addCalls.Load() == 2 })

	if n := h.emitter.count(events.SegmentAdded); n != 0 {
		t.Errorf("segment-added emitted %d times after failed writes", n)
	}
	h.orch.mu.Lock()
	s := h.orch.active
	h.orch.mu.Unlock()
	s.segMu.Lock()
	mirrored := len(s.segments)
	s.segMu.Unlock()
	if mirrored != 0 {
		t.Errorf("in-memory segments = %d, want 0", mirrored)
	}
	if !h.orch.IsActive() {
		t.Fatal("loop stopped after a failed segment write")
	}

	// Later chunks are still transcribed once writes recover.
	gw.mu.Lock()
	gw.addErr = nil
	gw.mu.Unlock()
	h.capture.mu.Lock()
	h.capture.chunks = append(h.capture.chunks, second())
	h.capture.mu.Unlock()
	h.engine.mu.Lock()
	h.engine.texts = append(h.engine.texts, "three")
	h.engine.mu.Unlock()
	waitFor(t, "recovered segment", func() bool {
		segs, _ := h.store.Segments(ctx, id)
		return len(segs) == 1
	})

	if err := h.orch.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStopFinalizeFailureStillEndsSession(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	finalizeErr := errors.New("database locked")
	gw := &flakyGateway{Store: st, finalizeErr: finalizeErr}
	h := newHarnessWith(t, st, gw, [][]float32{second()}, []string{"hello"})

	id, err := h.orch.Start(ctx, "", true)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "segment", func() bool {
		segs, _ := h.store.Segments(ctx, id)
		return len(segs) == 1
	})

	if err := h.orch.Stop(ctx); !errors.Is(err, finalizeErr) {
		t.Fatalf("stop: got %v, want %v", err, finalizeErr)
	}
	if h.orch.IsActive() {
		t.Error("still active after stop")
	}
	if n := h.emitter.count(events.SessionStopped); n != 1 {
		t.Errorf("session-stopped emitted %d times, want 1", n)
	}

	h.orch.Wait()
	history, err := h.store.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Text != "hello" {
		t.Errorf("history = %+v, want the meeting transcript", history)
	}
}

func TestMeetingAfterTranslationLeavesBufferIntact(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	dev := &micDevice{}
	rec := capture.NewRecorder(dev, audio.SampleRate)
	eng := &fakeEngine{texts: []string{"bonjour"}}
	tr := translate.New(rec, eng)
	orch := New(rec, eng, st, &recordingEmitter{}, Options{ChunkInterval: testInterval})

	if err := tr.Start(); err != nil {
		t.Fatalf("translate start: %v", err)
	}
	dev.feed(make([]float32, 1600))

	if _, err := orch.Start(ctx, "", false); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("meeting start: got %v, want ErrCaptureUnavailable", err)
	}
	if orch.IsActive() {
		t.Error("meeting active while translation owns the microphone")
	}
	if meetings, _ := st.Meetings(ctx); len(meetings) != 0 {
		t.Errorf("rejected start left %d meeting records", len(meetings))
	}

	// A running chunk loop would have drained the buffer by now.
	time.Sleep(5 * testInterval)
	dev.feed(make([]float32, 1600))

	res, err := tr.Stop(ctx, "fr")
	if err != nil {
		t.Fatalf("translate stop: %v", err)
	}
	if res.Original != "bonjour" {
		t.Errorf("original = %q", res.Original)
	}
	if eng.lastLen != 3200 {
		t.Errorf("translation transcribed %d samples, want 3200", eng.lastLen)
	}
}

func TestTranslationDuringMeetingIsBusy(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	dev := &micDevice{}
	rec := capture.NewRecorder(dev, audio.SampleRate)
	eng := &fakeEngine{texts: []string{"welcome"}}
	tr := translate.New(rec, eng)
	orch := New(rec, eng, st, &recordingEmitter{}, Options{ChunkInterval: testInterval})

	id, err := orch.Start(ctx, "", false)
	if err != nil {
		t.Fatalf("meeting start: %v", err)
	}
	if err := tr.Start(); !errors.Is(err, translate.ErrBusy) {
		t.Fatalf("translate start: got %v, want ErrBusy", err)
	}

	dev.feed(second())
	waitFor(t, "meeting segment", func() bool {
		segs, _ := st.Segments(ctx, id)
		return len(segs) == 1
	})
	if _, err := tr.Stop(ctx, "en"); !errors.Is(err, translate.ErrNoAudio) {
		t.Errorf("translate stop: got %v, want ErrNoAudio", err)
	}
	if !orch.IsActive() {
		t.Error("meeting ended by the rejected translation")
	}

	if err := orch.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if tag, ok := rec.Accumulating(); ok {
		t.Errorf("accumulation still owned by %q after stop", tag)
	}
}
