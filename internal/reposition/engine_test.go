package reposition

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixlearn/helix/internal/record"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(SkipConfig{})
	require.NoError(t, err)
	return e
}

func stitchList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("stitch-%02d", i)
	}
	return out
}

func perf(correct, total int, avgMs int64) record.Performance {
	return record.Performance{
		CorrectFirstAttempt: correct == total,
		ResponseTimeMs:      avgMs,
		CorrectCount:        correct,
		TotalCount:          total,
		AvgResponseTimeMs:   avgMs,
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	e := newTestEngine(t)
	cfg := e.Config()
	assert.Equal(t, DefaultBaseSkip, cfg.BaseSkip)
	assert.Equal(t, DefaultMinSkip, cfg.MinSkip)
	assert.Equal(t, int64(DefaultExpectedResponseMs), cfg.ExpectedResponseMs)
	assert.Equal(t, DefaultMinSpeedFactor, cfg.MinSpeedFactor)
	assert.Equal(t, DefaultMaxSpeedFactor, cfg.MaxSpeedFactor)
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	_, err := NewEngine(SkipConfig{BaseSkip: -1})
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewEngine(SkipConfig{MinSpeedFactor: 2.0, MaxSpeedFactor: 1.0})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestInitQueue(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.InitQueue("u1", "path-mult", stitchList(5)))

	front, err := e.Front("u1", "path-mult")
	require.NoError(t, err)
	assert.Equal(t, "stitch-00", front)

	err = e.InitQueue("u1", "path-mult", stitchList(5))
	require.ErrorIs(t, err, ErrAlreadyInitialized)

	err = e.InitQueue("u1", "path-add", nil)
	require.ErrorIs(t, err, ErrEmptyQueue)

	err = e.InitQueue("u1", "path-add", []string{"a", "b", "a"})
	require.ErrorIs(t, err, ErrDuplicateStitch)
}

func TestFront_UnknownQueue(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Front("u1", "path-mult")
	require.ErrorIs(t, err, ErrQueueNotFound)
}

// A perfect fast session on a 50-stitch queue lands near the back; a poor
// slow session stays near the front.
func TestCalculateSkip_SpreadsWithPerformance(t *testing.T) {
	e := newTestEngine(t)

	skip, err := e.CalculateSkip(perf(20, 20, 1000), 50)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, skip, 40, "perfect fast performance should land near the back")
	assert.LessOrEqual(t, skip, 49)

	skip, err = e.CalculateSkip(perf(5, 20, 4000), 50)
	require.NoError(t, err)
	assert.LessOrEqual(t, skip, 3, "poor slow performance should stay near the front")
	assert.GreaterOrEqual(t, skip, 1)
}

func TestCalculateSkip_Bounds(t *testing.T) {
	e := newTestEngine(t)

	// Skip is always within [MinSkip, queueLength-1] for queues of 2+.
	cases := []record.Performance{
		perf(0, 20, 9000),
		perf(20, 20, 100), // speed factor clamps at 1.5
		perf(10, 20, 3000),
		perf(1, 1, 1),
	}
	for _, p := range cases {
		for _, n := range []int{2, 3, 10, 50} {
			skip, err := e.CalculateSkip(p, n)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, skip, DefaultMinSkip)
			assert.LessOrEqual(t, skip, n-1)
		}
	}
}

func TestCalculateSkip_ConvexInAccuracy(t *testing.T) {
	e := newTestEngine(t)

	// Squaring the ratio penalizes partial correctness more than linear
	// scaling: half accuracy yields far less than half the full skip.
	full, err := e.CalculateSkip(perf(20, 20, 3000), 100)
	require.NoError(t, err)
	half, err := e.CalculateSkip(perf(10, 20, 3000), 100)
	require.NoError(t, err)
	assert.Less(t, half, full/2)
}

func TestCalculateSkip_SingleStitchQueue(t *testing.T) {
	e := newTestEngine(t)
	skip, err := e.CalculateSkip(perf(1, 1, 1000), 1)
	require.NoError(t, err)
	assert.Zero(t, skip)
}

func TestCalculateSkip_InvalidPerformance(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.CalculateSkip(record.Performance{}, 10)
	require.ErrorIs(t, err, record.ErrInvalidPerformance)
}

func TestReposition_MovesStitchForward(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.InitQueue("u1", "path-mult", stitchList(10)))

	// ratio 1, speed 1 → skip = BaseSkip, clamped to 9.
	res, err := e.Reposition("u1", "path-mult", "stitch-00", perf(20, 20, 3000))
	require.NoError(t, err)
	assert.Equal(t, 0, res.PreviousPosition)
	assert.Equal(t, 9, res.NewPosition)
	assert.Equal(t, 9, res.SkipNumber)

	q, err := e.Stitches("u1", "path-mult")
	require.NoError(t, err)
	assert.Equal(t, "stitch-01", q[0], "everything behind the moved stitch shifts up")
	assert.Equal(t, "stitch-00", q[9])
}

func TestReposition_PoorPerformanceStaysNearFront(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.InitQueue("u1", "path-mult", stitchList(10)))

	res, err := e.Reposition("u1", "path-mult", "stitch-00", perf(2, 20, 9000))
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkipNumber)
	assert.Equal(t, 1, res.NewPosition)

	q, err := e.Stitches("u1", "path-mult")
	require.NoError(t, err)
	assert.Equal(t, []string{"stitch-01", "stitch-00", "stitch-02"}, q[:3])
}

func TestReposition_MidQueue(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.InitQueue("u1", "path-mult", []string{"a", "b", "c", "d", "e"}))

	// Move "b" (position 1) forward: 30·0.25²·1 = 1.875 rounds to 2.
	p := record.Performance{CorrectFirstAttempt: false, ResponseTimeMs: 3000, CorrectCount: 5, TotalCount: 20, AvgResponseTimeMs: 3000}
	res, err := e.Reposition("u1", "path-mult", "b", p)
	require.NoError(t, err)
	require.Equal(t, 2, res.SkipNumber)
	assert.Equal(t, 1, res.PreviousPosition)
	assert.Equal(t, 3, res.NewPosition)

	q, err := e.Stitches("u1", "path-mult")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d", "b", "e"}, q)
}

func TestReposition_StitchNotFound(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.InitQueue("u1", "path-mult", stitchList(5)))

	_, err := e.Reposition("u1", "path-mult", "stitch-99", perf(1, 1, 1000))
	require.ErrorIs(t, err, ErrStitchNotFound)

	// Failed call leaves the queue untouched.
	q, err := e.Stitches("u1", "path-mult")
	require.NoError(t, err)
	assert.Equal(t, stitchList(5), q)
}

// Property: after any sequence of repositions the positions are a dense
// permutation of 0..N-1.
func TestReposition_DensePermutationInvariant(t *testing.T) {
	e := newTestEngine(t)
	const n = 12
	require.NoError(t, e.InitQueue("u1", "path-mult", stitchList(n)))

	perfs := []record.Performance{
		perf(20, 20, 1000),
		perf(5, 20, 4000),
		perf(12, 20, 2500),
		perf(1, 20, 8000),
	}
	for i := 0; i < 60; i++ {
		front, err := e.Front("u1", "path-mult")
		require.NoError(t, err)
		_, err = e.Reposition("u1", "path-mult", front, perfs[i%len(perfs)])
		require.NoError(t, err)

		positions, err := e.Positions("u1", "path-mult")
		require.NoError(t, err)
		require.Len(t, positions, n)
		seen := make([]bool, n)
		for _, pos := range positions {
			require.GreaterOrEqual(t, pos, 0)
			require.Less(t, pos, n)
			require.False(t, seen[pos], "duplicate position %d", pos)
			seen[pos] = true
		}
	}
}

func TestExportLoadRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.InitQueue("u1", "path-mult", stitchList(5)))
	require.NoError(t, e.InitQueue("u1", "path-add", []string{"x", "y"}))
	_, err := e.Reposition("u1", "path-mult", "stitch-00", perf(20, 20, 1000))
	require.NoError(t, err)

	exported := e.Export("u1")
	require.Len(t, exported, 2)

	fresh := newTestEngine(t)
	require.NoError(t, fresh.Load("u1", exported))
	q, err := fresh.Stitches("u1", "path-mult")
	require.NoError(t, err)

	orig, err := e.Stitches("u1", "path-mult")
	require.NoError(t, err)
	assert.Equal(t, orig, q)
}

func TestLoad_RejectsCorruptQueues(t *testing.T) {
	e := newTestEngine(t)
	err := e.Load("u1", map[string][]string{"path-mult": {"a", "a"}})
	require.ErrorIs(t, err, ErrDuplicateStitch)

	err = e.Load("u1", map[string][]string{"path-mult": {}})
	require.ErrorIs(t, err, ErrEmptyQueue)

	assert.Nil(t, e.Export("u1"))
}
