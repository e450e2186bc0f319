// Package store persists meetings, transcription history and TTS history in a
// local SQLite database, and owns the recordings directory next to it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// EventHistoryUpdated is emitted after every transcription history mutation.
const EventHistoryUpdated = "history-updated"

// Emitter receives fire-and-forget change notifications.
type Emitter interface {
	Emit(name string, payload any)
}

// Options controls history retention.
type Options struct {
	Retention    string // never, preserve_limit, 3d, 2w, 3m
	HistoryLimit int    // unsaved entries kept under preserve_limit
}

// Store is the SQLite-backed persistence gateway.
type Store struct {
	db            *sql.DB
	recordingsDir string
	emitter       Emitter
	logger        *slog.Logger

	mu   sync.RWMutex
	opts Options
}

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS transcription_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_name TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		saved BOOLEAN NOT NULL DEFAULT 0,
		title TEXT NOT NULL,
		transcription_text TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS meetings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		start_timestamp INTEGER NOT NULL,
		end_timestamp INTEGER,
		duration_seconds INTEGER DEFAULT 0,
		summary TEXT,
		is_pro BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS meeting_segments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		meeting_id INTEGER NOT NULL,
		speaker_id TEXT DEFAULT 'Unknown',
		start_time_offset REAL NOT NULL,
		end_time_offset REAL NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY(meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
	)`,
	`ALTER TABLE meetings ADD COLUMN file_name TEXT`,
	`ALTER TABLE meetings ADD COLUMN is_favorite BOOLEAN NOT NULL DEFAULT 0`,
	`CREATE TABLE IF NOT EXISTS tts_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		voice_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		is_favorite BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meeting_segments_meeting ON meeting_segments(meeting_id, start_time_offset)`,
}

// Open creates dataDir/recordings and opens dataDir/history.db with WAL and
// foreign keys enabled, applying any pending migrations.
func Open(dataDir string, opts Options) (*Store, error) {
	recordings := filepath.Join(dataDir, "recordings")
	if err := os.MkdirAll(recordings, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}

	path := filepath.Join(dataDir, "history.db")
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:            db,
		recordingsDir: recordings,
		opts:          opts,
		logger:        slog.With("component", "store"),
	}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Info("history database ready", "path", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetEmitter sets where history-updated notifications go.
func (s *Store) SetEmitter(e Emitter) {
	s.emitter = e
}

// SetOptions replaces the retention options; the next save applies them.
func (s *Store) SetOptions(opts Options) {
	s.mu.Lock()
	s.opts = opts
	s.mu.Unlock()
}

func (s *Store) options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// RecordingsDir returns the directory holding all audio files.
func (s *Store) RecordingsDir() string { return s.recordingsDir }

// AudioFilePath resolves a stored file name inside the recordings directory.
func (s *Store) AudioFilePath(name string) string {
	return filepath.Join(s.recordingsDir, filepath.Base(name))
}

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}
	if version < len(migrations) {
		s.logger.Info("database migrated", "from", version, "to", len(migrations))
	}
	return nil
}

func (s *Store) emit(name string) {
	if s.emitter != nil {
		s.emitter.Emit(name, nil)
	}
}

// removeFile deletes a recording, ignoring files that are already gone.
func (s *Store) removeFile(name string) {
	if name == "" {
		return
	}
	if err := os.Remove(s.AudioFilePath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("failed to delete audio file", "file", name, "error", err)
	}
}

// timestampTitle formats a unix timestamp as a human-readable local title.
func timestampTitle(ts int64) string {
	return time.Unix(ts, 0).Local().Format("January 2, 2006 - 3:04PM")
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
