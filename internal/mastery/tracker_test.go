package mastery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixlearn/helix/internal/record"
)

var t0 = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := NewTracker(Config{})
	require.NoError(t, err)
	return tr
}

func correct(ms int64) record.Performance {
	return record.Performance{
		CorrectFirstAttempt: true,
		ResponseTimeMs:      ms,
		CorrectCount:        1,
		TotalCount:          1,
		AvgResponseTimeMs:   ms,
	}
}

func incorrect(ms int64) record.Performance {
	return record.Performance{
		CorrectFirstAttempt: false,
		ResponseTimeMs:      ms,
		CorrectCount:        0,
		TotalCount:          1,
		AvgResponseTimeMs:   ms,
	}
}

func TestNewTracker_Defaults(t *testing.T) {
	tr := newTestTracker(t)
	cfg := tr.Config()
	assert.Equal(t, DefaultAlpha, cfg.Alpha)
	assert.Equal(t, DefaultPromoteThreshold, cfg.PromoteThreshold)
	assert.Equal(t, DefaultDemoteThreshold, cfg.DemoteThreshold)
	assert.Equal(t, DefaultDwellWindow, cfg.DwellWindow)
	assert.Equal(t, DefaultResponseCeilingsMs, cfg.ResponseCeilingsMs)
}

func TestNewTracker_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"alpha above 1", Config{Alpha: 1.5}},
		{"alpha negative", Config{Alpha: -0.2}},
		{"promote threshold negative", Config{PromoteThreshold: -1}},
		{"demote threshold negative", Config{DemoteThreshold: -2}},
		{"dwell negative", Config{DwellWindow: -time.Minute}},
		{"zero ceiling", Config{ResponseCeilingsMs: [record.LevelCount]int64{4000, 0, 3000, 2500, 2000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTracker(tt.cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestTracker_LevelBeforeInitialize(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Level("u1", "mult-7-8")
	require.ErrorIs(t, err, ErrNoMasteryData)
}

func TestTracker_Initialize(t *testing.T) {
	tr := newTestTracker(t)

	rec, err := tr.Initialize("u1", "mult-7-8", 0)
	require.NoError(t, err)
	assert.Equal(t, record.LevelCategory, rec.Level)
	assert.Zero(t, rec.MasteryScore)

	level, err := tr.Level("u1", "mult-7-8")
	require.NoError(t, err)
	assert.Equal(t, record.LevelCategory, level)

	_, err = tr.Initialize("u1", "mult-7-8", 0)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestTracker_InitializeExplicitLevel(t *testing.T) {
	tr := newTestTracker(t)

	rec, err := tr.Initialize("u1", "mult-7-8", record.LevelOperation)
	require.NoError(t, err)
	assert.Equal(t, record.LevelOperation, rec.Level)

	_, err = tr.Initialize("u1", "add-1-2", record.BoundaryLevel(7))
	require.ErrorIs(t, err, record.ErrInvalidLevel)
}

func TestTracker_UpdateBeforeInitialize(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Update("u1", "mult-7-8", correct(1000), t0)
	require.ErrorIs(t, err, ErrNoMasteryData)
}

func TestTracker_UpdateRejectsMalformedPerformance(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", 0)
	require.NoError(t, err)

	bad := correct(1000)
	bad.TotalCount = 0
	_, err = tr.Update("u1", "mult-7-8", bad, t0)
	require.ErrorIs(t, err, record.ErrInvalidPerformance)

	// Rejected update must leave the record untouched.
	rec, err := tr.Record("u1", "mult-7-8")
	require.NoError(t, err)
	assert.Zero(t, rec.MasteryScore)
	assert.Zero(t, rec.ConsecutiveCorrect)
	assert.Nil(t, rec.LastAttemptAt)
}

func TestTracker_EWMAScore(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", 0)
	require.NoError(t, err)

	// score' = score + 0.2·(1 − score), starting from 0.
	res, err := tr.Update("u1", "mult-7-8", correct(1000), t0)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.MasteryScore, 1e-9)

	res, err = tr.Update("u1", "mult-7-8", correct(1000), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 0.36, res.MasteryScore, 1e-9)

	res, err = tr.Update("u1", "mult-7-8", incorrect(1000), t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.InDelta(t, 0.288, res.MasteryScore, 1e-9)
}

// Three fast correct answers cross the promote threshold exactly once: the
// streak is consumed by the promotion, so one streak never yields two level
// changes.
func TestTracker_PromotionConsumesStreak(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", 0)
	require.NoError(t, err)

	now := t0
	for i := 0; i < 2; i++ {
		res, err := tr.Update("u1", "mult-7-8", correct(1000), now)
		require.NoError(t, err)
		assert.False(t, res.Changed)
		now = now.Add(time.Minute)
	}

	res, err := tr.Update("u1", "mult-7-8", correct(1000), now)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, record.LevelCategory, res.PreviousLevel)
	assert.Equal(t, record.LevelMagnitude, res.NewLevel)

	rec, err := tr.Record("u1", "mult-7-8")
	require.NoError(t, err)
	assert.Zero(t, rec.ConsecutiveCorrect, "promotion must reset the streak")

	// Two more correct answers are not enough for a second promotion.
	for i := 0; i < 2; i++ {
		now = now.Add(time.Minute)
		res, err = tr.Update("u1", "mult-7-8", correct(1000), now)
		require.NoError(t, err)
		assert.False(t, res.Changed)
	}
	// The third crosses the threshold again.
	now = now.Add(time.Minute)
	res, err = tr.Update("u1", "mult-7-8", correct(1000), now)
	require.NoError(t, err)
	assert.Equal(t, record.LevelOperation, res.NewLevel)
}

func TestTracker_SlowResponseBlocksPromotion(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", 0)
	require.NoError(t, err)

	// Level 1 ceiling is 4000ms; the third answer is too slow to promote.
	now := t0
	for i := 0; i < 2; i++ {
		_, err := tr.Update("u1", "mult-7-8", correct(1000), now)
		require.NoError(t, err)
		now = now.Add(time.Minute)
	}
	res, err := tr.Update("u1", "mult-7-8", correct(4500), now)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, record.LevelCategory, res.NewLevel)

	// The streak keeps growing; a fast fourth answer promotes.
	res, err = tr.Update("u1", "mult-7-8", correct(1000), now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, record.LevelMagnitude, res.NewLevel)
}

// The ceiling is exclusive: a response exactly at the level ceiling does
// not promote, one millisecond under it does.
func TestTracker_CeilingIsExclusive(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", 0)
	require.NoError(t, err)

	now := t0
	for i := 0; i < 2; i++ {
		_, err := tr.Update("u1", "mult-7-8", correct(1000), now)
		require.NoError(t, err)
		now = now.Add(time.Minute)
	}
	ceiling := DefaultResponseCeilingsMs[0]
	res, err := tr.Update("u1", "mult-7-8", correct(ceiling), now)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, record.LevelCategory, res.NewLevel)

	res, err = tr.Update("u1", "mult-7-8", correct(ceiling-1), now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, record.LevelMagnitude, res.NewLevel)
}

func TestTracker_LevelFiveIsTerminal(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", record.LevelNearMiss)
	require.NoError(t, err)

	now := t0
	for i := 0; i < 10; i++ {
		res, err := tr.Update("u1", "mult-7-8", correct(500), now)
		require.NoError(t, err)
		assert.Equal(t, record.LevelNearMiss, res.NewLevel)
		assert.False(t, res.Changed)
		now = now.Add(time.Minute)
	}
}

func TestTracker_DemotionNeedsTwoMisses(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", record.LevelOperation)
	require.NoError(t, err)

	res, err := tr.Update("u1", "mult-7-8", incorrect(2000), t0)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = tr.Update("u1", "mult-7-8", incorrect(2000), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, record.LevelOperation, res.PreviousLevel)
	assert.Equal(t, record.LevelMagnitude, res.NewLevel)
}

func TestTracker_LevelOneNeverDemotes(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", 0)
	require.NoError(t, err)

	now := t0
	for i := 0; i < 6; i++ {
		res, err := tr.Update("u1", "mult-7-8", incorrect(2000), now)
		require.NoError(t, err)
		assert.Equal(t, record.LevelCategory, res.NewLevel)
		now = now.Add(time.Minute)
	}
}

// A second demotion inside the dwell window is suppressed even when the
// miss streak is long enough. Once the window elapses the demotion applies.
func TestTracker_DwellWindowBlocksSecondDemotion(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", record.LevelRelatedFact)
	require.NoError(t, err)

	now := t0
	// First demotion: 4 → 3.
	for i := 0; i < 2; i++ {
		_, err := tr.Update("u1", "mult-7-8", incorrect(2000), now)
		require.NoError(t, err)
		now = now.Add(time.Second)
	}
	level, err := tr.Level("u1", "mult-7-8")
	require.NoError(t, err)
	require.Equal(t, record.LevelOperation, level)

	// Two more misses within the window: no second demotion.
	for i := 0; i < 2; i++ {
		res, err := tr.Update("u1", "mult-7-8", incorrect(2000), now)
		require.NoError(t, err)
		assert.False(t, res.Changed)
		now = now.Add(time.Second)
	}

	// Past the dwell window the pending miss streak demotes again.
	now = now.Add(DefaultDwellWindow)
	res, err := tr.Update("u1", "mult-7-8", incorrect(2000), now)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, record.LevelMagnitude, res.NewLevel)
}

// Alternating correct/incorrect answers never reach either threshold, so
// the level never moves.
func TestTracker_NoOscillation(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", record.LevelOperation)
	require.NoError(t, err)

	now := t0
	for i := 0; i < 40; i++ {
		p := correct(1000)
		if i%2 == 1 {
			p = incorrect(1000)
		}
		res, err := tr.Update("u1", "mult-7-8", p, now)
		require.NoError(t, err)
		assert.False(t, res.Changed)
		assert.Equal(t, record.LevelOperation, res.NewLevel)
		now = now.Add(time.Minute)
	}
}

// Property: for any mix of answers the level stays in 1..5 and moves by at
// most one step per update.
func TestTracker_LevelBoundsAndNoSkip(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", 0)
	require.NoError(t, err)

	// Deterministic pseudo-random answer pattern.
	now := t0
	for i := 0; i < 200; i++ {
		p := correct(500 + int64(i%7)*700)
		if (i*31)%5 < 2 {
			p = incorrect(1000)
		}
		res, err := tr.Update("u1", "mult-7-8", p, now)
		require.NoError(t, err)
		assert.True(t, res.NewLevel.IsValid())
		diff := int(res.NewLevel) - int(res.PreviousLevel)
		assert.Contains(t, []int{-1, 0, 1}, diff)
		now = now.Add(30 * time.Second)
	}
}

func TestTracker_ExportLoadRoundTrip(t *testing.T) {
	tr := newTestTracker(t)
	_, err := tr.Initialize("u1", "mult-7-8", 0)
	require.NoError(t, err)
	_, err = tr.Initialize("u1", "add-3-4", 0)
	require.NoError(t, err)
	_, err = tr.Update("u1", "mult-7-8", correct(900), t0)
	require.NoError(t, err)

	exported := tr.Export("u1")
	require.Len(t, exported, 2)
	assert.Equal(t, "add-3-4", exported[0].FactID, "export is ordered by fact ID")

	fresh := newTestTracker(t)
	require.NoError(t, fresh.Load(exported))

	rec, err := fresh.Record("u1", "mult-7-8")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, rec.MasteryScore, 1e-9)
	assert.Equal(t, 1, rec.ConsecutiveCorrect)
}

func TestTracker_LoadRejectsCorruptRecords(t *testing.T) {
	tr := newTestTracker(t)
	err := tr.Load([]record.UserFactMastery{
		{UserID: "u1", FactID: "f1", Level: record.BoundaryLevel(9)},
	})
	require.ErrorIs(t, err, record.ErrInvalidLevel)

	err = tr.Load([]record.UserFactMastery{
		{UserID: "u1", FactID: "f1", Level: record.LevelCategory, MasteryScore: 1.5},
	})
	require.Error(t, err)

	// Negative streaks are as corrupt as out-of-range scores.
	err = tr.Load([]record.UserFactMastery{
		{UserID: "u1", FactID: "f1", Level: record.LevelCategory, ConsecutiveCorrect: -1},
	})
	require.ErrorIs(t, err, record.ErrInvalidPerformance)

	err = tr.Load([]record.UserFactMastery{
		{UserID: "u1", FactID: "f1", Level: record.LevelCategory, ConsecutiveMisses: -3},
	})
	require.ErrorIs(t, err, record.ErrInvalidPerformance)
	assert.Nil(t, tr.Export("u1"), "failed load must not install anything")
}
