package record

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Domain prefixes for content-addressed hashing. The version suffix enables
// future algorithm migration without colliding with old fingerprints.
const (
	DomainSnapshot = "helix/snapshot/v1"
	DomainAttempt  = "helix/attempt/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotHash computes the content-addressed fingerprint of a snapshot.
// The fingerprint is stable across processes given identical state, so the
// persistence gateway can verify that a rehydrated snapshot matches what
// was saved.
func SnapshotHash(snap Snapshot) (string, error) {
	canonical, err := MarshalCanonical(snap.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("snapshot hash: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// AttemptHash computes the content-addressed fingerprint of an attempt log
// entry, excluding its UUID (the hash represents what happened, not the
// identifier it was assigned).
func AttemptHash(a Attempt) (string, error) {
	m := a.CanonicalMap()
	delete(m, "id")
	canonical, err := MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("attempt hash: %w", err)
	}
	return hashWithDomain(DomainAttempt, canonical), nil
}

// CanonicalMap converts the snapshot to a map[string]any suitable for
// MarshalCanonical. Mastery records are ordered by fact ID and queue keys
// sort canonically inside the marshaler, so the result is deterministic
// regardless of map iteration order.
func (s Snapshot) CanonicalMap() map[string]any {
	mastery := make([]any, len(s.Mastery))
	ordered := make([]UserFactMastery, len(s.Mastery))
	copy(ordered, s.Mastery)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].FactID < ordered[j].FactID })
	for i, m := range ordered {
		mastery[i] = m.CanonicalMap()
	}

	queues := make(map[string]any, len(s.Queues))
	for pathID, stitches := range s.Queues {
		queues[pathID] = stitches
	}

	return map[string]any{
		"user_id":                s.UserID,
		"mastery":                mastery,
		"queues":                 queues,
		"helix":                  s.Helix.CanonicalMap(),
		"answers_since_rotation": s.AnswersSinceRotation,
	}
}

// CanonicalMap converts the mastery record for canonical serialization.
// Optional fields are omitted when unset, never emitted as null.
func (m UserFactMastery) CanonicalMap() map[string]any {
	out := map[string]any{
		"user_id":             m.UserID,
		"fact_id":             m.FactID,
		"level":               m.Level.String(),
		"mastery_score":       m.MasteryScore,
		"consecutive_correct": m.ConsecutiveCorrect,
		"consecutive_misses":  m.ConsecutiveMisses,
	}
	if m.LastResponseMs != nil {
		out["last_response_ms"] = *m.LastResponseMs
	}
	if m.LastAttemptAt != nil {
		out["last_attempt_at"] = canonicalTime(*m.LastAttemptAt)
	}
	if m.LastDemotionAt != nil {
		out["last_demotion_at"] = canonicalTime(*m.LastDemotionAt)
	}
	return out
}

// CanonicalMap converts the helix state for canonical serialization.
func (h TripleHelixState) CanonicalMap() map[string]any {
	paths := make([]any, len(h.Paths))
	for i, p := range h.Paths {
		paths[i] = map[string]any{
			"path_id":                p.PathID,
			"status":                 p.Status.String(),
			"current_stitch_id":      p.CurrentStitchID,
			"next_stitch_id":         p.NextStitchID,
			"difficulty":             p.Difficulty,
			"rotations_since_active": p.RotationsSinceActive,
		}
	}
	out := map[string]any{
		"user_id":        h.UserID,
		"paths":          paths,
		"rotation_count": h.RotationCount,
	}
	if h.LastRotationAt != nil {
		out["last_rotation_at"] = canonicalTime(*h.LastRotationAt)
	}
	return out
}

// CanonicalMap converts the attempt for canonical serialization.
func (a Attempt) CanonicalMap() map[string]any {
	return map[string]any{
		"id":          a.ID,
		"user_id":     a.UserID,
		"path_id":     a.PathID,
		"stitch_id":   a.StitchID,
		"fact_id":     a.FactID,
		"seq":         a.Seq,
		"recorded_at": canonicalTime(a.RecordedAt),
		"performance": map[string]any{
			"correct_first_attempt": a.Performance.CorrectFirstAttempt,
			"response_time_ms":      a.Performance.ResponseTimeMs,
			"correct_count":         a.Performance.CorrectCount,
			"total_count":           a.Performance.TotalCount,
			"avg_response_time_ms":  a.Performance.AvgResponseTimeMs,
		},
	}
}

// canonicalTime renders a timestamp as RFC 3339 with nanoseconds in UTC.
func canonicalTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
