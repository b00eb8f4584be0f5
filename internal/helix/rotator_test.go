package helix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixlearn/helix/internal/record"
)

var (
	t0    = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	paths = [3]string{"path-mult", "path-add", "path-sub"}
)

func initRotator(t *testing.T) *Rotator {
	t.Helper()
	r := NewRotator()
	_, err := r.Initialize("u1", paths, 1)
	require.NoError(t, err)
	return r
}

func TestInitialize(t *testing.T) {
	r := NewRotator()
	state, err := r.Initialize("u1", paths, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(0), state.RotationCount)
	assert.Equal(t, record.StatusActive, state.Paths[0].Status)
	assert.Equal(t, record.StatusPreparing, state.Paths[1].Status)
	assert.Equal(t, record.StatusPreparing, state.Paths[2].Status)
	assert.Equal(t, 0, state.Paths[1].RotationsSinceActive)
	assert.Equal(t, 1, state.Paths[2].RotationsSinceActive)
	for _, p := range state.Paths {
		assert.Equal(t, MinDifficulty, p.Difficulty)
	}

	_, err = r.Initialize("u1", paths, 1)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestInitialize_Validation(t *testing.T) {
	r := NewRotator()

	_, err := r.Initialize("u1", paths, 9)
	require.ErrorIs(t, err, ErrInvalidDifficulty)

	_, err = r.Initialize("u1", [3]string{"a", "a", "b"}, 1)
	require.ErrorIs(t, err, ErrUnknownPath)

	_, err = r.Initialize("u1", [3]string{"a", "", "b"}, 1)
	require.ErrorIs(t, err, ErrUnknownPath)
}

func TestActive(t *testing.T) {
	r := initRotator(t)

	active, err := r.Active("u1")
	require.NoError(t, err)
	assert.Equal(t, "path-mult", active.PathID)

	_, err = r.Active("nobody")
	require.ErrorIs(t, err, ErrNoHelixState)
}

func TestPreparing(t *testing.T) {
	r := initRotator(t)

	preparing, err := r.Preparing("u1")
	require.NoError(t, err)
	require.Len(t, preparing, 2)
	assert.Equal(t, "path-add", preparing[0].PathID)
	assert.Equal(t, "path-sub", preparing[1].PathID)
}

func TestRotate_PromotesLongestPreparing(t *testing.T) {
	r := initRotator(t)

	// path-sub starts with the higher rotations-since-active.
	res, err := r.Rotate("u1", t0)
	require.NoError(t, err)
	assert.Equal(t, "path-mult", res.PreviousActive)
	assert.Equal(t, "path-sub", res.NewActive)
	assert.Equal(t, int64(1), res.RotationCount)

	state, err := r.State("u1")
	require.NoError(t, err)
	require.NotNil(t, state.LastRotationAt)
	assert.Equal(t, t0, *state.LastRotationAt)
}

// Three rotations return each path to active exactly once.
func TestRotate_RoundRobin(t *testing.T) {
	r := initRotator(t)

	seen := make(map[string]int)
	now := t0
	for i := 0; i < 3; i++ {
		res, err := r.Rotate("u1", now)
		require.NoError(t, err)
		seen[res.NewActive]++
		now = now.Add(time.Minute)
	}
	assert.Equal(t, map[string]int{"path-mult": 1, "path-add": 1, "path-sub": 1}, seen)

	// After a full cycle the original path is active again.
	active, err := r.Active("u1")
	require.NoError(t, err)
	assert.Equal(t, "path-mult", active.PathID)
}

// Exactly one path is active at all times, including immediately after
// every rotation.
func TestRotate_ExactlyOneActiveInvariant(t *testing.T) {
	r := initRotator(t)

	now := t0
	for i := 0; i < 12; i++ {
		_, err := r.Rotate("u1", now)
		require.NoError(t, err)

		state, err := r.State("u1")
		require.NoError(t, err)
		active := 0
		for _, p := range state.Paths {
			if p.Status == record.StatusActive {
				active++
			}
		}
		require.Equal(t, 1, active)
		require.Equal(t, int64(i+1), state.RotationCount)
		now = now.Add(time.Minute)
	}
}

func TestRotate_NoState(t *testing.T) {
	r := NewRotator()
	_, err := r.Rotate("nobody", t0)
	require.ErrorIs(t, err, ErrNoHelixState)
}

func TestSetDifficulty(t *testing.T) {
	r := initRotator(t)

	path, err := r.SetDifficulty("u1", "path-add", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, path.Difficulty)

	// The other two paths are untouched.
	state, err := r.State("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Paths[0].Difficulty)
	assert.Equal(t, 4, state.Paths[1].Difficulty)
	assert.Equal(t, 1, state.Paths[2].Difficulty)

	_, err = r.SetDifficulty("u1", "path-add", 6)
	require.ErrorIs(t, err, ErrInvalidDifficulty)

	_, err = r.SetDifficulty("u1", "path-missing", 3)
	require.ErrorIs(t, err, ErrUnknownPath)
}

// Difficulty-only mutations do not disturb the rotation order.
func TestSetDifficulty_DoesNotAffectRotation(t *testing.T) {
	r := initRotator(t)

	_, err := r.SetDifficulty("u1", "path-sub", 3)
	require.NoError(t, err)

	res, err := r.Rotate("u1", t0)
	require.NoError(t, err)
	assert.Equal(t, "path-sub", res.NewActive)
}

func TestSetStitchPointers(t *testing.T) {
	r := initRotator(t)

	require.NoError(t, r.SetStitchPointers("u1", "path-mult", "s1", "s2"))
	active, err := r.Active("u1")
	require.NoError(t, err)
	assert.Equal(t, "s1", active.CurrentStitchID)
	assert.Equal(t, "s2", active.NextStitchID)
}

func TestLoad(t *testing.T) {
	r := initRotator(t)
	state, err := r.State("u1")
	require.NoError(t, err)

	fresh := NewRotator()
	require.NoError(t, fresh.Load(state))
	active, err := fresh.Active("u1")
	require.NoError(t, err)
	assert.Equal(t, "path-mult", active.PathID)
}

func TestLoad_RejectsCorruptState(t *testing.T) {
	r := initRotator(t)
	state, err := r.State("u1")
	require.NoError(t, err)

	// Two active paths violates the invariant.
	state.Paths[1].Status = record.StatusActive
	err = NewRotator().Load(state)
	require.ErrorIs(t, err, ErrCorruptState)

	state, err = r.State("u1")
	require.NoError(t, err)
	state.Paths[0].Difficulty = 7
	err = NewRotator().Load(state)
	require.ErrorIs(t, err, ErrCorruptState)
}
