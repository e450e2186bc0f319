package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recordingEmitter struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingEmitter) Emit(name string, _ any) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
}

func (r *recordingEmitter) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.names {
		if got == name {
			n++
		}
	}
	return n
}

func openTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), opts)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		s, err := Open(dir, Options{Retention: "never"})
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		var version int
		if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			t.Fatalf("user_version: %v", err)
		}
		if version != len(migrations) {
			t.Errorf("user_version = %d, want %d", version, len(migrations))
		}
		s.Close()
	}
}

func TestMeetingLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{Retention: "never"})

	id, path, err := s.CreateMeeting(ctx, "")
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	if filepath.Dir(path) != s.RecordingsDir() {
		t.Errorf("recording path %q not under %q", path, s.RecordingsDir())
	}

	m, err := s.Meeting(ctx, id)
	if err != nil {
		t.Fatalf("get meeting: %v", err)
	}
	if m.Title == "" {
		t.Error("empty title was not replaced with a timestamp title")
	}
	if m.EndTimestamp != nil {
		t.Errorf("new meeting already has end timestamp %d", *m.EndTimestamp)
	}
	if s.AudioFilePath(m.FileName) != path {
		t.Errorf("file name %q does not resolve to %q", m.FileName, path)
	}

	// Out of order on purpose: Segments orders by start offset.
	if _, err := s.AddSegment(ctx, id, "Speaker 1", 5, 10, "world"); err != nil {
		t.Fatalf("add segment: %v", err)
	}
	if _, err := s.AddSegment(ctx, id, "Speaker 1", 0, 5, "hello"); err != nil {
		t.Fatalf("add segment: %v", err)
	}
	segs, err := s.Segments(ctx, id)
	if err != nil {
		t.Fatalf("segments: %v", err)
	}
	if len(segs) != 2 || segs[0].Text != "hello" || segs[1].Text != "world" {
		t.Fatalf("segments = %+v", segs)
	}

	if err := s.FinalizeMeeting(ctx, id, 10); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	m, _ = s.Meeting(ctx, id)
	if m.EndTimestamp == nil || m.DurationSeconds != 10 {
		t.Errorf("finalized meeting = %+v", m)
	}

	if err := s.ToggleMeetingFavorite(ctx, id); err != nil {
		t.Fatalf("toggle favorite: %v", err)
	}
	m, _ = s.Meeting(ctx, id)
	if !m.IsFavorite {
		t.Error("favorite flag not set")
	}

	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	if err := s.DeleteMeeting(ctx, id); err != nil {
		t.Fatalf("delete meeting: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("recording still exists after delete: %v", err)
	}
	if segs, _ := s.Segments(ctx, id); len(segs) != 0 {
		t.Errorf("segments survived meeting delete: %+v", segs)
	}
	if _, err := s.Meeting(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("get deleted meeting: got %v, want ErrNotFound", err)
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{Retention: "never"})

	checks := map[string]error{
		"finalize":        s.FinalizeMeeting(ctx, 42, 1),
		"toggle favorite": s.ToggleMeetingFavorite(ctx, 42),
		"delete meeting":  s.DeleteMeeting(ctx, 42),
		"toggle saved":    s.ToggleSaved(ctx, 42),
		"delete history":  s.DeleteHistoryEntry(ctx, 42),
		"toggle tts":      s.ToggleTTSFavorite(ctx, 42),
		"delete tts":      s.DeleteTTSEntry(ctx, 42),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: got %v, want ErrNotFound", name, err)
		}
	}
}

func TestSaveTranscription(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{Retention: "never"})
	em := &recordingEmitter{}
	s.SetEmitter(em)

	entry, err := s.SaveTranscription(ctx, make([]float32, 1600), "hello world")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(s.AudioFilePath(entry.FileName)); err != nil {
		t.Errorf("recording not written: %v", err)
	}

	got, err := s.HistoryEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Text != "hello world" || got.Saved {
		t.Errorf("entry = %+v", got)
	}

	if err := s.ToggleSaved(ctx, entry.ID); err != nil {
		t.Fatalf("toggle saved: %v", err)
	}
	if err := s.DeleteHistoryEntry(ctx, entry.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(s.AudioFilePath(entry.FileName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("recording survived delete: %v", err)
	}
	if n := em.count(EventHistoryUpdated); n != 3 {
		t.Errorf("history-updated emitted %d times, want 3", n)
	}
}

func TestRetentionPreserveLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{Retention: "preserve_limit", HistoryLimit: 2})

	first, err := s.SaveTranscription(ctx, make([]float32, 160), "keep me")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.ToggleSaved(ctx, first.ID); err != nil {
		t.Fatalf("toggle saved: %v", err)
	}

	var unsaved []*HistoryEntry
	for i := 0; i < 3; i++ {
		time.Sleep(2 * time.Millisecond) // distinct file names
		e, err := s.SaveTranscription(ctx, make([]float32, 160), "transient")
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		unsaved = append(unsaved, e)
	}

	entries, err := s.History(ctx)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("history has %d entries, want saved + 2 newest unsaved", len(entries))
	}
	if _, err := s.HistoryEntry(ctx, first.ID); err != nil {
		t.Errorf("saved entry was cleaned up: %v", err)
	}
	if _, err := s.HistoryEntry(ctx, unsaved[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("oldest unsaved entry survived: %v", err)
	}
	if _, err := os.Stat(s.AudioFilePath(unsaved[0].FileName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("oldest recording survived: %v", err)
	}
}

func TestRetentionByAge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{Retention: "3d"})

	old := time.Now().Add(-4 * 24 * time.Hour).Unix()
	for _, saved := range []bool{false, true} {
		if _, err := s.db.Exec(`
			INSERT INTO transcription_history (file_name, timestamp, saved, title, transcription_text)
			VALUES ('old.wav', ?, ?, 'old', 'old')`, old, saved); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	if _, err := s.SaveTranscription(ctx, make([]float32, 160), "fresh"); err != nil {
		t.Fatalf("save: %v", err)
	}

	entries, _ := s.History(ctx)
	if len(entries) != 2 {
		t.Fatalf("history = %+v, want fresh + saved old entry", entries)
	}
	for _, e := range entries {
		if e.Text == "old" && !e.Saved {
			t.Errorf("unsaved old entry survived: %+v", e)
		}
	}
}

func TestTTSHistory(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, Options{Retention: "never"})

	path := s.AudioFilePath("tts-1.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	id, err := s.SaveTTSEntry(ctx, "good morning", "p225", "tts-1.wav")
	if err != nil {
		t.Fatalf("save tts: %v", err)
	}
	if err := s.ToggleTTSFavorite(ctx, id); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	entries, err := s.TTSHistory(ctx)
	if err != nil {
		t.Fatalf("tts history: %v", err)
	}
	if len(entries) != 1 || !entries[0].IsFavorite || entries[0].VoiceID != "p225" {
		t.Fatalf("tts history = %+v", entries)
	}

	if err := s.DeleteTTSEntry(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("tts audio survived delete: %v", err)
	}
}
