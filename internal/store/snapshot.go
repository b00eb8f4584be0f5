package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/helixlearn/helix/internal/record"
)

// SaveSnapshot persists a user's full engine state, replacing any previous
// snapshot. All writes happen in one transaction: a crash mid-save leaves
// the previous snapshot intact, never a mix of old and new rows.
func (s *Store) SaveSnapshot(ctx context.Context, snap record.Snapshot, now time.Time) error {
	hash, err := record.SnapshotHash(snap)
	if err != nil {
		return fmt.Errorf("store: fingerprint snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin save: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (user_id, snapshot_hash, saved_at, answers_since_rotation)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			snapshot_hash = excluded.snapshot_hash,
			saved_at = excluded.saved_at,
			answers_since_rotation = excluded.answers_since_rotation
	`, snap.UserID, hash, formatTime(now), snap.AnswersSinceRotation)
	if err != nil {
		return fmt.Errorf("store: save user row: %w", err)
	}

	for _, table := range []string{"mastery", "queue_positions", "helix_state", "helix_paths"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE user_id = ?", table), snap.UserID); err != nil {
			return fmt.Errorf("store: clear %s: %w", table, err)
		}
	}

	for _, m := range snap.Mastery {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO mastery
			(user_id, fact_id, level, mastery_score, consecutive_correct,
			 consecutive_misses, last_response_ms, last_attempt_at, last_demotion_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			m.UserID, m.FactID, int(m.Level), m.MasteryScore, m.ConsecutiveCorrect,
			m.ConsecutiveMisses, nullInt64(m.LastResponseMs), nullTime(m.LastAttemptAt), nullTime(m.LastDemotionAt))
		if err != nil {
			return fmt.Errorf("store: save mastery %s: %w", m.FactID, err)
		}
	}

	for pathID, stitchIDs := range snap.Queues {
		for pos, stitchID := range stitchIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO queue_positions (user_id, path_id, position, stitch_id)
				VALUES (?, ?, ?, ?)
			`, snap.UserID, pathID, pos, stitchID)
			if err != nil {
				return fmt.Errorf("store: save queue %s position %d: %w", pathID, pos, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO helix_state (user_id, rotation_count, last_rotation_at)
		VALUES (?, ?, ?)
	`, snap.UserID, snap.Helix.RotationCount, nullTime(snap.Helix.LastRotationAt))
	if err != nil {
		return fmt.Errorf("store: save helix state: %w", err)
	}
	for slot, p := range snap.Helix.Paths {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO helix_paths
			(user_id, slot, path_id, status, current_stitch_id, next_stitch_id,
			 difficulty, rotations_since_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			snap.UserID, slot, p.PathID, p.Status.String(), p.CurrentStitchID,
			p.NextStitchID, p.Difficulty, p.RotationsSinceActive)
		if err != nil {
			return fmt.Errorf("store: save helix path %s: %w", p.PathID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit save: %w", err)
	}
	return nil
}

// LoadSnapshot reads a user's snapshot back. The stored fingerprint is
// recomputed over the loaded rows and must match; a mismatch means the
// rows were modified outside SaveSnapshot and returns ErrCorruptSnapshot.
func (s *Store) LoadSnapshot(ctx context.Context, userID string) (record.Snapshot, error) {
	var storedHash string
	var answersSinceRotation int
	err := s.db.QueryRowContext(ctx,
		"SELECT snapshot_hash, answers_since_rotation FROM users WHERE user_id = ?", userID).
		Scan(&storedHash, &answersSinceRotation)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Snapshot{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err != nil {
		return record.Snapshot{}, fmt.Errorf("store: load user row: %w", err)
	}

	snap := record.Snapshot{UserID: userID, AnswersSinceRotation: answersSinceRotation}
	if snap.Mastery, err = s.loadMastery(ctx, userID); err != nil {
		return record.Snapshot{}, err
	}
	if snap.Queues, err = s.loadQueues(ctx, userID); err != nil {
		return record.Snapshot{}, err
	}
	if snap.Helix, err = s.loadHelix(ctx, userID); err != nil {
		return record.Snapshot{}, err
	}

	hash, err := record.SnapshotHash(snap)
	if err != nil {
		return record.Snapshot{}, fmt.Errorf("store: fingerprint loaded snapshot: %w", err)
	}
	if hash != storedHash {
		return record.Snapshot{}, fmt.Errorf("%w: user %s", ErrCorruptSnapshot, userID)
	}
	return snap, nil
}

func (s *Store) loadMastery(ctx context.Context, userID string) ([]record.UserFactMastery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fact_id, level, mastery_score, consecutive_correct,
		       consecutive_misses, last_response_ms, last_attempt_at, last_demotion_at
		FROM mastery WHERE user_id = ?
		ORDER BY fact_id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: load mastery: %w", err)
	}
	defer rows.Close()

	var out []record.UserFactMastery
	for rows.Next() {
		m := record.UserFactMastery{UserID: userID}
		var level int
		var responseMs sql.NullInt64
		var attemptAt, demotionAt sql.NullString
		if err := rows.Scan(&m.FactID, &level, &m.MasteryScore, &m.ConsecutiveCorrect,
			&m.ConsecutiveMisses, &responseMs, &attemptAt, &demotionAt); err != nil {
			return nil, fmt.Errorf("store: scan mastery: %w", err)
		}
		m.Level = record.BoundaryLevel(level)
		if responseMs.Valid {
			v := responseMs.Int64
			m.LastResponseMs = &v
		}
		if m.LastAttemptAt, err = parseNullTime(attemptAt); err != nil {
			return nil, fmt.Errorf("store: mastery %s: %w", m.FactID, err)
		}
		if m.LastDemotionAt, err = parseNullTime(demotionAt); err != nil {
			return nil, fmt.Errorf("store: mastery %s: %w", m.FactID, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) loadQueues(ctx context.Context, userID string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path_id, stitch_id FROM queue_positions
		WHERE user_id = ?
		ORDER BY path_id ASC, position ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: load queues: %w", err)
	}
	defer rows.Close()

	queues := make(map[string][]string)
	for rows.Next() {
		var pathID, stitchID string
		if err := rows.Scan(&pathID, &stitchID); err != nil {
			return nil, fmt.Errorf("store: scan queue row: %w", err)
		}
		queues[pathID] = append(queues[pathID], stitchID)
	}
	return queues, rows.Err()
}

func (s *Store) loadHelix(ctx context.Context, userID string) (record.TripleHelixState, error) {
	state := record.TripleHelixState{UserID: userID}
	var rotatedAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT rotation_count, last_rotation_at FROM helix_state WHERE user_id = ?", userID).
		Scan(&state.RotationCount, &rotatedAt)
	if err != nil {
		return record.TripleHelixState{}, fmt.Errorf("store: load helix state: %w", err)
	}
	if state.LastRotationAt, err = parseNullTime(rotatedAt); err != nil {
		return record.TripleHelixState{}, fmt.Errorf("store: helix state: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT slot, path_id, status, current_stitch_id, next_stitch_id,
		       difficulty, rotations_since_active
		FROM helix_paths WHERE user_id = ?
		ORDER BY slot ASC
	`, userID)
	if err != nil {
		return record.TripleHelixState{}, fmt.Errorf("store: load helix paths: %w", err)
	}
	defer rows.Close()

	seen := 0
	for rows.Next() {
		var slot int
		var status string
		var p record.PathState
		if err := rows.Scan(&slot, &p.PathID, &status, &p.CurrentStitchID,
			&p.NextStitchID, &p.Difficulty, &p.RotationsSinceActive); err != nil {
			return record.TripleHelixState{}, fmt.Errorf("store: scan helix path: %w", err)
		}
		if slot < 0 || slot > 2 {
			return record.TripleHelixState{}, fmt.Errorf("store: helix path slot %d out of range", slot)
		}
		if err := p.Status.UnmarshalText([]byte(status)); err != nil {
			return record.TripleHelixState{}, fmt.Errorf("store: helix path %s: %w", p.PathID, err)
		}
		state.Paths[slot] = p
		seen++
	}
	if err := rows.Err(); err != nil {
		return record.TripleHelixState{}, err
	}
	if seen != 3 {
		return record.TripleHelixState{}, fmt.Errorf("store: user %s has %d helix paths, want 3", userID, seen)
	}
	return state, nil
}

// Users lists all user IDs with a saved snapshot, sorted.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT user_id FROM users ORDER BY user_id ASC")
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan user id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parse stored time %q: %w", ns.String, err)
	}
	t = t.UTC()
	return &t, nil
}
