package helix

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/helixlearn/helix/internal/record"
)

// Difficulty bounds for a path. Difficulty is per-path and maps onto the
// five boundary levels of the content presented from that path.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// Rotator owns all TripleHelixState records and implements rotation.
// Not safe for concurrent use on the same user; the host serializes
// per-user calls.
type Rotator struct {
	states map[string]*record.TripleHelixState
}

// RotationResult reports the outcome of one Rotate call.
type RotationResult struct {
	PreviousActive string
	NewActive      string
	RotationCount  int64
}

// NewRotator creates an empty Rotator.
func NewRotator() *Rotator {
	return &Rotator{states: make(map[string]*record.TripleHelixState)}
}

// Initialize creates the triple helix state for a user. pathIDs[0] starts
// active; pathIDs[1] and pathIDs[2] start preparing with rotations-since-
// active of 0 and 1 respectively, breaking the tie for the first rotation
// deterministically (pathIDs[2] is promoted first). A zero initialDifficulty
// defaults to MinDifficulty.
func (r *Rotator) Initialize(userID string, pathIDs [3]string, initialDifficulty int) (record.TripleHelixState, error) {
	if _, ok := r.states[userID]; ok {
		return record.TripleHelixState{}, fmt.Errorf("%w: user %s", ErrAlreadyInitialized, userID)
	}
	if initialDifficulty == 0 {
		initialDifficulty = MinDifficulty
	}
	if initialDifficulty < MinDifficulty || initialDifficulty > MaxDifficulty {
		return record.TripleHelixState{}, fmt.Errorf("%w: %d", ErrInvalidDifficulty, initialDifficulty)
	}
	seen := make(map[string]struct{}, 3)
	for _, id := range pathIDs {
		if id == "" {
			return record.TripleHelixState{}, fmt.Errorf("%w: empty path id", ErrUnknownPath)
		}
		if _, dup := seen[id]; dup {
			return record.TripleHelixState{}, fmt.Errorf("%w: duplicate path id %s", ErrUnknownPath, id)
		}
		seen[id] = struct{}{}
	}

	state := &record.TripleHelixState{
		UserID: userID,
		Paths: [3]record.PathState{
			{PathID: pathIDs[0], Status: record.StatusActive, Difficulty: initialDifficulty},
			{PathID: pathIDs[1], Status: record.StatusPreparing, Difficulty: initialDifficulty, RotationsSinceActive: 0},
			{PathID: pathIDs[2], Status: record.StatusPreparing, Difficulty: initialDifficulty, RotationsSinceActive: 1},
		},
	}
	r.states[userID] = state

	slog.Debug("triple helix initialized",
		"user_id", userID,
		"active", pathIDs[0],
		"difficulty", initialDifficulty,
	)
	return state.Clone(), nil
}

// State returns a copy of the user's full triple helix state.
func (r *Rotator) State(userID string) (record.TripleHelixState, error) {
	state, ok := r.states[userID]
	if !ok {
		return record.TripleHelixState{}, fmt.Errorf("%w: %s", ErrNoHelixState, userID)
	}
	return state.Clone(), nil
}

// Active returns a copy of the user's active path.
func (r *Rotator) Active(userID string) (record.PathState, error) {
	state, ok := r.states[userID]
	if !ok {
		return record.PathState{}, fmt.Errorf("%w: %s", ErrNoHelixState, userID)
	}
	active := state.Active()
	if active == nil {
		return record.PathState{}, fmt.Errorf("%w: user %s", ErrNoActivePath, userID)
	}
	return *active, nil
}

// Preparing returns copies of the user's two preparing paths.
func (r *Rotator) Preparing(userID string) ([]record.PathState, error) {
	state, ok := r.states[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHelixState, userID)
	}
	out := make([]record.PathState, 0, 2)
	for _, p := range state.Paths {
		if p.Status == record.StatusPreparing {
			out = append(out, p)
		}
	}
	return out, nil
}

// Rotate cycles the helix: the active path becomes preparing, and the
// preparing path with the highest rotations-since-active becomes active.
// The promoted path's counter resets to 0; the path that stayed preparing
// increments; the freshly-demoted path starts at 0. The state is validated
// before and after the transition — a violation of the exactly-one-active
// invariant means a coding defect, and the state is left unchanged.
func (r *Rotator) Rotate(userID string, now time.Time) (RotationResult, error) {
	state, ok := r.states[userID]
	if !ok {
		return RotationResult{}, fmt.Errorf("%w: %s", ErrNoHelixState, userID)
	}
	if err := verify(state); err != nil {
		return RotationResult{}, err
	}

	activeIdx := -1
	promoteIdx := -1
	for i, p := range state.Paths {
		switch p.Status {
		case record.StatusActive:
			activeIdx = i
		case record.StatusPreparing:
			if promoteIdx < 0 || p.RotationsSinceActive > state.Paths[promoteIdx].RotationsSinceActive {
				promoteIdx = i
			}
		}
	}

	next := state.Clone()
	next.Paths[activeIdx].Status = record.StatusPreparing
	next.Paths[activeIdx].RotationsSinceActive = 0
	next.Paths[promoteIdx].Status = record.StatusActive
	next.Paths[promoteIdx].RotationsSinceActive = 0
	for i := range next.Paths {
		if i != activeIdx && i != promoteIdx {
			next.Paths[i].RotationsSinceActive++
		}
	}
	next.RotationCount++
	rotatedAt := now
	next.LastRotationAt = &rotatedAt

	if err := verify(&next); err != nil {
		return RotationResult{}, err
	}
	*state = next

	result := RotationResult{
		PreviousActive: state.Paths[activeIdx].PathID,
		NewActive:      state.Paths[promoteIdx].PathID,
		RotationCount:  state.RotationCount,
	}
	slog.Info("helix rotated",
		"user_id", userID,
		"previous_active", result.PreviousActive,
		"new_active", result.NewActive,
		"rotation_count", result.RotationCount,
	)
	return result, nil
}

// SetDifficulty updates one path's difficulty. The other two paths are
// never touched. Returns the updated path state.
func (r *Rotator) SetDifficulty(userID, pathID string, difficulty int) (record.PathState, error) {
	if difficulty < MinDifficulty || difficulty > MaxDifficulty {
		return record.PathState{}, fmt.Errorf("%w: %d", ErrInvalidDifficulty, difficulty)
	}
	path, err := r.path(userID, pathID)
	if err != nil {
		return record.PathState{}, err
	}
	path.Difficulty = difficulty
	return *path, nil
}

// SetStitchPointers records the current and next stitch for a path. Called
// by the facade after reading the path's queue, so the helix state mirrors
// what the learner will see.
func (r *Rotator) SetStitchPointers(userID, pathID, currentStitchID, nextStitchID string) error {
	path, err := r.path(userID, pathID)
	if err != nil {
		return err
	}
	path.CurrentStitchID = currentStitchID
	path.NextStitchID = nextStitchID
	return nil
}

// Load rehydrates a user's helix state, replacing any existing one. The
// state is validated before it is installed.
func (r *Rotator) Load(state record.TripleHelixState) error {
	clone := state.Clone()
	if err := verify(&clone); err != nil {
		return err
	}
	r.states[state.UserID] = &clone
	return nil
}

func (r *Rotator) path(userID, pathID string) (*record.PathState, error) {
	state, ok := r.states[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHelixState, userID)
	}
	for i := range state.Paths {
		if state.Paths[i].PathID == pathID {
			return &state.Paths[i], nil
		}
	}
	return nil, fmt.Errorf("%w: user %s path %s", ErrUnknownPath, userID, pathID)
}

// verify checks the structural invariants: exactly one active path, two
// preparing, and difficulties in range.
func verify(state *record.TripleHelixState) error {
	active := 0
	for _, p := range state.Paths {
		switch p.Status {
		case record.StatusActive:
			active++
		case record.StatusPreparing:
			// ok
		default:
			return fmt.Errorf("%w: path %s has status %s", ErrCorruptState, p.PathID, p.Status)
		}
		if p.Difficulty < MinDifficulty || p.Difficulty > MaxDifficulty {
			return fmt.Errorf("%w: path %s difficulty %d", ErrCorruptState, p.PathID, p.Difficulty)
		}
		if p.RotationsSinceActive < 0 {
			return fmt.Errorf("%w: path %s rotations since active %d", ErrCorruptState, p.PathID, p.RotationsSinceActive)
		}
	}
	if active != 1 {
		return fmt.Errorf("%w: %d active paths", ErrCorruptState, active)
	}
	return nil
}
