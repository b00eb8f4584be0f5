package store

import (
	"context"
	"fmt"
	"time"

	"github.com/helixlearn/helix/internal/record"
)

// AppendAttempt inserts one attempt log entry. Uses ON CONFLICT(id) DO
// NOTHING for idempotency: replaying a save after a crash never duplicates
// log entries.
func (s *Store) AppendAttempt(ctx context.Context, a record.Attempt) error {
	correctFirst := 0
	if a.Performance.CorrectFirstAttempt {
		correctFirst = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attempts
		(id, user_id, path_id, stitch_id, fact_id, correct_first_attempt,
		 response_time_ms, correct_count, total_count, avg_response_time_ms,
		 seq, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		a.ID, a.UserID, a.PathID, a.StitchID, a.FactID, correctFirst,
		a.Performance.ResponseTimeMs, a.Performance.CorrectCount, a.Performance.TotalCount,
		a.Performance.AvgResponseTimeMs, a.Seq, formatTime(a.RecordedAt))
	if err != nil {
		return fmt.Errorf("store: append attempt %s: %w", a.ID, err)
	}
	return nil
}

// Attempts returns a user's full attempt log in logical order. Ordering is
// by seq, then id, never by timestamp, so results are identical across
// replays.
func (s *Store) Attempts(ctx context.Context, userID string) ([]record.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path_id, stitch_id, fact_id, correct_first_attempt,
		       response_time_ms, correct_count, total_count, avg_response_time_ms,
		       seq, recorded_at
		FROM attempts WHERE user_id = ?
		ORDER BY seq ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: load attempts: %w", err)
	}
	defer rows.Close()

	var out []record.Attempt
	for rows.Next() {
		a := record.Attempt{UserID: userID}
		var correctFirst int
		var recordedAt string
		if err := rows.Scan(&a.ID, &a.PathID, &a.StitchID, &a.FactID, &correctFirst,
			&a.Performance.ResponseTimeMs, &a.Performance.CorrectCount, &a.Performance.TotalCount,
			&a.Performance.AvgResponseTimeMs, &a.Seq, &recordedAt); err != nil {
			return nil, fmt.Errorf("store: scan attempt: %w", err)
		}
		a.Performance.CorrectFirstAttempt = correctFirst == 1
		if a.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			return nil, fmt.Errorf("store: attempt %s: parse recorded_at %q: %w", a.ID, recordedAt, err)
		}
		a.RecordedAt = a.RecordedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// LastSeq returns the highest seq in a user's attempt log, or 0 when the
// log is empty. Used to resume the logical clock on rehydration.
func (s *Store) LastSeq(ctx context.Context, userID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM attempts WHERE user_id = ?", userID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("store: last seq: %w", err)
	}
	return seq, nil
}
