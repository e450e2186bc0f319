package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TTSEntry records one synthesized utterance.
type TTSEntry struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	VoiceID    string `json:"voice_id"`
	FileName   string `json:"file_name"`
	Timestamp  int64  `json:"timestamp"`
	IsFavorite bool   `json:"is_favorite"`
}

// SaveTTSEntry records synthesized audio already written to fileName.
func (s *Store) SaveTTSEntry(ctx context.Context, text, voice, fileName string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tts_history (text, voice_id, file_name, timestamp, is_favorite)
		VALUES (?, ?, ?, ?, 0)
	`, text, voice, fileName, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert tts entry: %w", err)
	}
	return res.LastInsertId()
}

// TTSHistory returns all TTS entries, newest first.
func (s *Store) TTSHistory(ctx context.Context) ([]TTSEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, voice_id, file_name, timestamp, is_favorite
		FROM tts_history
		ORDER BY timestamp DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tts history: %w", err)
	}
	defer rows.Close()

	entries := []TTSEntry{}
	for rows.Next() {
		var e TTSEntry
		if err := rows.Scan(&e.ID, &e.Text, &e.VoiceID, &e.FileName, &e.Timestamp, &e.IsFavorite); err != nil {
			return nil, fmt.Errorf("scan tts entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ToggleTTSFavorite flips a TTS entry's favorite flag.
func (s *Store) ToggleTTSFavorite(ctx context.Context, id int64) error {
	err := affected(s.db.ExecContext(ctx, `UPDATE tts_history SET is_favorite = NOT is_favorite WHERE id = ?`, id))
	if err != nil {
		return fmt.Errorf("toggle tts favorite %d: %w", id, err)
	}
	return nil
}

// DeleteTTSEntry removes a TTS entry and its audio file.
func (s *Store) DeleteTTSEntry(ctx context.Context, id int64) error {
	var fileName string
	err := s.db.QueryRowContext(ctx, `SELECT file_name FROM tts_history WHERE id = ?`, id).Scan(&fileName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("delete tts entry %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete tts entry %d: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tts_history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete tts entry %d: %w", id, err)
	}
	s.removeFile(fileName)
	return nil
}
