package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Meeting is one recorded meeting.
type Meeting struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	StartTimestamp  int64  `json:"start_timestamp"`
	EndTimestamp    *int64 `json:"end_timestamp,omitempty"`
	DurationSeconds int64  `json:"duration_seconds"`
	Summary         string `json:"summary,omitempty"`
	IsPro           bool   `json:"is_pro"`
	FileName        string `json:"file_name,omitempty"`
	IsFavorite      bool   `json:"is_favorite"`
}

// Segment is one transcribed span of a meeting. Offsets are seconds from the
// start of the recording.
type Segment struct {
	ID          int64   `json:"id"`
	MeetingID   int64   `json:"meeting_id"`
	SpeakerID   string  `json:"speaker_id"`
	StartOffset float64 `json:"start_time_offset"`
	EndOffset   float64 `json:"end_time_offset"`
	Text        string  `json:"text"`
}

// CreateMeeting inserts a new meeting and returns its id and the path its
// recording should be written to. An empty title is replaced by the start
// time.
func (s *Store) CreateMeeting(ctx context.Context, title string) (int64, string, error) {
	now := time.Now().Unix()
	if strings.TrimSpace(title) == "" {
		title = timestampTitle(now)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, "", fmt.Errorf("create meeting: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO meetings (title, start_timestamp, is_pro) VALUES (?, ?, 0)`, title, now)
	if err != nil {
		return 0, "", fmt.Errorf("create meeting: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", fmt.Errorf("create meeting: %w", err)
	}

	fileName := fmt.Sprintf("meeting-%d-%d.wav", now, id)
	if _, err := tx.ExecContext(ctx, `UPDATE meetings SET file_name = ? WHERE id = ?`, fileName, id); err != nil {
		return 0, "", fmt.Errorf("create meeting: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, "", fmt.Errorf("create meeting: %w", err)
	}

	s.logger.Debug("meeting created", "id", id, "file", fileName)
	return id, s.AudioFilePath(fileName), nil
}

// AddSegment persists one transcribed segment and returns its id.
func (s *Store) AddSegment(ctx context.Context, meetingID int64, speaker string, start, end float64, text string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO meeting_segments (meeting_id, speaker_id, start_time_offset, end_time_offset, text)
		VALUES (?, ?, ?, ?, ?)
	`, meetingID, speaker, start, end, text)
	if err != nil {
		return 0, fmt.Errorf("add segment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add segment: %w", err)
	}
	return id, nil
}

// FinalizeMeeting records the end time and total duration.
func (s *Store) FinalizeMeeting(ctx context.Context, id int64, durationSeconds int64) error {
	err := affected(s.db.ExecContext(ctx,
		`UPDATE meetings SET end_timestamp = ?, duration_seconds = ? WHERE id = ?`,
		time.Now().Unix(), durationSeconds, id))
	if err != nil {
		return fmt.Errorf("finalize meeting %d: %w", id, err)
	}
	return nil
}

const meetingColumns = `id, title, start_timestamp, end_timestamp, duration_seconds, summary, is_pro, file_name, is_favorite`

type scanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row scanner) (Meeting, error) {
	var m Meeting
	var end sql.NullInt64
	var duration sql.NullInt64
	var summary, fileName sql.NullString
	if err := row.Scan(&m.ID, &m.Title, &m.StartTimestamp, &end, &duration,
		&summary, &m.IsPro, &fileName, &m.IsFavorite); err != nil {
		return m, err
	}
	if end.Valid {
		v := end.Int64
		m.EndTimestamp = &v
	}
	m.DurationSeconds = duration.Int64
	m.Summary = summary.String
	m.FileName = fileName.String
	return m, nil
}

// Meeting returns a single meeting by id.
func (s *Store) Meeting(ctx context.Context, id int64) (*Meeting, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	m, err := scanMeeting(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan meeting: %w", err)
	}
	return &m, nil
}

// Meetings returns all meetings, newest first.
func (s *Store) Meetings(ctx context.Context) ([]Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings ORDER BY start_timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}
	defer rows.Close()

	meetings := []Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// Segments returns a meeting's segments ordered by start offset.
func (s *Store) Segments(ctx context.Context, meetingID int64) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_id, speaker_id, start_time_offset, end_time_offset, text
		FROM meeting_segments
		WHERE meeting_id = ?
		ORDER BY start_time_offset ASC, id ASC
	`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	segments := []Segment{}
	for rows.Next() {
		var seg Segment
		var speaker sql.NullString
		if err := rows.Scan(&seg.ID, &seg.MeetingID, &speaker,
			&seg.StartOffset, &seg.EndOffset, &seg.Text); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.SpeakerID = speaker.String
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// ToggleMeetingFavorite flips a meeting's favorite flag.
func (s *Store) ToggleMeetingFavorite(ctx context.Context, id int64) error {
	err := affected(s.db.ExecContext(ctx, `UPDATE meetings SET is_favorite = NOT is_favorite WHERE id = ?`, id))
	if err != nil {
		return fmt.Errorf("toggle meeting favorite %d: %w", id, err)
	}
	return nil
}

// DeleteMeeting removes a meeting, its segments and its recording.
func (s *Store) DeleteMeeting(ctx context.Context, id int64) error {
	m, err := s.Meeting(ctx, id)
	if err != nil {
		return fmt.Errorf("delete meeting %d: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete meeting %d: %w", id, err)
	}
	s.removeFile(m.FileName)
	s.logger.Debug("meeting deleted", "id", id)
	return nil
}
