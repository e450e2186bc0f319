package store

import (
	"context"
	"fmt"
	"time"
)

// retentionWindow maps time-based policies to their cutoff age. Months are
// approximated as 30 days.
var retentionWindow = map[string]time.Duration{
	"3d": 3 * 24 * time.Hour,
	"2w": 14 * 24 * time.Hour,
	"3m": 90 * 24 * time.Hour,
}

type staleEntry struct {
	id       int64
	fileName string
}

// cleanup deletes unsaved history entries that fall outside the retention
// policy, along with their recordings.
func (s *Store) cleanup(ctx context.Context) error {
	opts := s.options()

	var stale []staleEntry
	var err error
	switch opts.Retention {
	case "", "never":
		return nil
	case "preserve_limit":
		stale, err = s.beyondLimit(ctx, opts.HistoryLimit)
	default:
		window, ok := retentionWindow[opts.Retention]
		if !ok {
			return fmt.Errorf("unknown retention policy %q", opts.Retention)
		}
		stale, err = s.olderThan(ctx, time.Now().Add(-window).Unix())
	}
	if err != nil {
		return err
	}

	for _, e := range stale {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM transcription_history WHERE id = ?`, e.id); err != nil {
			return fmt.Errorf("delete stale entry %d: %w", e.id, err)
		}
		s.removeFile(e.fileName)
	}
	if len(stale) > 0 {
		s.logger.Info("cleaned up old history entries", "count", len(stale), "policy", opts.Retention)
	}
	return nil
}

func (s *Store) beyondLimit(ctx context.Context, limit int) ([]staleEntry, error) {
	if limit < 0 {
		limit = 0
	}
	return s.queryStale(ctx, `
		SELECT id, file_name FROM transcription_history
		WHERE saved = 0
		ORDER BY timestamp DESC, id DESC
		LIMIT -1 OFFSET ?
	`, limit)
}

func (s *Store) olderThan(ctx context.Context, cutoff int64) ([]staleEntry, error) {
	return s.queryStale(ctx, `
		SELECT id, file_name FROM transcription_history
		WHERE saved = 0 AND timestamp < ?
	`, cutoff)
}

func (s *Store) queryStale(ctx context.Context, query string, arg any) ([]staleEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query stale entries: %w", err)
	}
	defer rows.Close()

	var out []staleEntry
	for rows.Next() {
		var e staleEntry
		if err := rows.Scan(&e.id, &e.fileName); err != nil {
			return nil, fmt.Errorf("scan stale entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
