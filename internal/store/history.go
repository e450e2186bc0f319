package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nadzzz/murmur/internal/audio"
)

// HistoryEntry is one saved transcription with its recording.
type HistoryEntry struct {
	ID        int64  `json:"id"`
	FileName  string `json:"file_name"`
	Timestamp int64  `json:"timestamp"`
	Saved     bool   `json:"saved"`
	Title     string `json:"title"`
	Text      string `json:"transcription_text"`
}

// SaveTranscription writes samples to a new recording, records the entry and
// applies the retention policy.
func (s *Store) SaveTranscription(ctx context.Context, samples []float32, text string) (*HistoryEntry, error) {
	now := time.Now()
	entry := &HistoryEntry{
		FileName:  fmt.Sprintf("murmur-%d.wav", now.UnixMilli()),
		Timestamp: now.Unix(),
		Title:     timestampTitle(now.Unix()),
		Text:      text,
	}

	if err := audio.WriteFile(s.AudioFilePath(entry.FileName), samples); err != nil {
		return nil, fmt.Errorf("save transcription audio: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transcription_history (file_name, timestamp, saved, title, transcription_text)
		VALUES (?, ?, 0, ?, ?)
	`, entry.FileName, entry.Timestamp, entry.Title, entry.Text)
	if err != nil {
		s.removeFile(entry.FileName)
		return nil, fmt.Errorf("insert history entry: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert history entry: %w", err)
	}
	s.logger.Debug("transcription saved", "id", entry.ID, "file", entry.FileName)

	if err := s.cleanup(ctx); err != nil {
		s.logger.Error("history retention cleanup failed", "error", err)
	}
	s.emit(EventHistoryUpdated)
	return entry, nil
}

const historyColumns = `id, file_name, timestamp, saved, title, transcription_text`

func scanHistory(row scanner) (HistoryEntry, error) {
	var e HistoryEntry
	err := row.Scan(&e.ID, &e.FileName, &e.Timestamp, &e.Saved, &e.Title, &e.Text)
	return e, err
}

// History returns all transcription history entries, newest first.
func (s *Store) History(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM transcription_history ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// HistoryEntry returns a single history entry by id.
func (s *Store) HistoryEntry(ctx context.Context, id int64) (*HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+historyColumns+` FROM transcription_history WHERE id = ?`, id)
	e, err := scanHistory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan history entry: %w", err)
	}
	return &e, nil
}

// ToggleSaved flips an entry's saved flag. Saved entries survive retention.
func (s *Store) ToggleSaved(ctx context.Context, id int64) error {
	err := affected(s.db.ExecContext(ctx, `UPDATE transcription_history SET saved = NOT saved WHERE id = ?`, id))
	if err != nil {
		return fmt.Errorf("toggle saved %d: %w", id, err)
	}
	s.emit(EventHistoryUpdated)
	return nil
}

// DeleteHistoryEntry removes an entry and its recording.
func (s *Store) DeleteHistoryEntry(ctx context.Context, id int64) error {
	e, err := s.HistoryEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("delete history entry %d: %w", id, err)
	}
	s.removeFile(e.FileName)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transcription_history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete history entry %d: %w", id, err)
	}
	s.emit(EventHistoryUpdated)
	return nil
}
