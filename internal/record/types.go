package record

import "time"

// Fact is one atomic piece of content, owned by the external fact
// repository. The engine references facts by ID only and never derives
// mastery from fact content.
type Fact struct {
	ID        string `json:"id"`
	Statement string `json:"statement"` // e.g. "7 × 8"
	Answer    string `json:"answer"`
	Operation string `json:"operation"` // e.g. "multiplication"
}

// Stitch is a named, ordered bundle of facts belonging to exactly one
// learning path. Stitches are created at content-authoring time and are
// read-only to the engine except for their queue position.
type Stitch struct {
	ID      string   `json:"id"`
	PathID  string   `json:"path_id"`
	FactIDs []string `json:"fact_ids"`
}

// PrimaryFactID returns the stitch's primary fact, the one whose boundary
// level is reported when the stitch is presented. Empty if the stitch has
// no facts.
func (s Stitch) PrimaryFactID() string {
	if len(s.FactIDs) == 0 {
		return ""
	}
	return s.FactIDs[0]
}

// UserFactMastery is the per-(user, fact) mastery record. Created lazily on
// first exposure (level 1), mutated only by the boundary tracker, never
// deleted.
type UserFactMastery struct {
	UserID             string        `json:"user_id"`
	FactID             string        `json:"fact_id"`
	Level              BoundaryLevel `json:"level"`
	MasteryScore       float64       `json:"mastery_score"` // EWMA in [0, 1]
	ConsecutiveCorrect int           `json:"consecutive_correct"`
	ConsecutiveMisses  int           `json:"consecutive_misses"`
	LastResponseMs     *int64        `json:"last_response_ms,omitempty"`
	LastAttemptAt      *time.Time    `json:"last_attempt_at,omitempty"`
	LastDemotionAt     *time.Time    `json:"last_demotion_at,omitempty"` // dwell-window floor
}

// Clone returns a deep copy of the record. Pointer fields are copied by value.
func (m UserFactMastery) Clone() UserFactMastery {
	out := m
	if m.LastResponseMs != nil {
		v := *m.LastResponseMs
		out.LastResponseMs = &v
	}
	if m.LastAttemptAt != nil {
		v := *m.LastAttemptAt
		out.LastAttemptAt = &v
	}
	if m.LastDemotionAt != nil {
		v := *m.LastDemotionAt
		out.LastDemotionAt = &v
	}
	return out
}

// PathState is the rotation state of one of a user's three learning paths.
// Difficulty is per-path and independent: each path represents an
// independently-progressing topic.
type PathState struct {
	PathID               string     `json:"path_id"`
	Status               PathStatus `json:"status"`
	CurrentStitchID      string     `json:"current_stitch_id"`
	NextStitchID         string     `json:"next_stitch_id"`
	Difficulty           int        `json:"difficulty"` // 1..5
	RotationsSinceActive int        `json:"rotations_since_active"`
}

// TripleHelixState is the per-user rotation record. Exactly one path is
// Active; the other two are Preparing. Mutated only by the path rotator.
type TripleHelixState struct {
	UserID         string       `json:"user_id"`
	Paths          [3]PathState `json:"paths"`
	RotationCount  int64        `json:"rotation_count"`
	LastRotationAt *time.Time   `json:"last_rotation_at,omitempty"`
}

// Clone returns a deep copy of the state.
func (h TripleHelixState) Clone() TripleHelixState {
	out := h
	if h.LastRotationAt != nil {
		v := *h.LastRotationAt
		out.LastRotationAt = &v
	}
	return out
}

// Active returns the currently active path, or nil if the invariant is
// broken (no Active path).
func (h *TripleHelixState) Active() *PathState {
	for i := range h.Paths {
		if h.Paths[i].Status == StatusActive {
			return &h.Paths[i]
		}
	}
	return nil
}

// Attempt is one immutable entry in the append-only attempt log. Attempts
// are stamped with a UUIDv7 ID and a monotonic logical sequence number so
// persisted logs replay in a stable order.
type Attempt struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	PathID      string      `json:"path_id"`
	StitchID    string      `json:"stitch_id"`
	FactID      string      `json:"fact_id"`
	Performance Performance `json:"performance"`
	Seq         int64       `json:"seq"`
	RecordedAt  time.Time   `json:"recorded_at"`
}

// Snapshot is the full per-user engine state, used by the persistence
// gateway and for debugging. Queues map each path ID to its ordered stitch
// IDs; slice index is queue position (dense permutation by construction).
type Snapshot struct {
	UserID  string              `json:"user_id"`
	Mastery []UserFactMastery   `json:"mastery"`
	Queues  map[string][]string `json:"queues"`
	Helix   TripleHelixState    `json:"helix"`

	// AnswersSinceRotation carries the rotation cadence counter across
	// save/load so cadence rotation keeps working when each answer is
	// handled by a fresh process.
	AnswersSinceRotation int `json:"answers_since_rotation"`
}
