package mastery

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/helixlearn/helix/internal/record"
)

// Defaults for the promotion/demotion state machine. All of them are
// overridable through Config; the defaults match the tuning the engine
// ships with.
const (
	DefaultAlpha            = 0.2
	DefaultPromoteThreshold = 3
	DefaultDemoteThreshold  = 2
	DefaultDwellWindow      = 10 * time.Minute
)

// DefaultResponseCeilingsMs are the per-level response time ceilings for
// promotion, indexed by current level - 1. Higher levels demand faster
// recall before the learner is moved up.
var DefaultResponseCeilingsMs = [record.LevelCount]int64{4000, 3500, 3000, 2500, 2000}

// Config tunes the boundary tracker. Zero values produce the defaults
// above; out-of-range values are rejected by NewTracker.
type Config struct {
	Alpha              float64                    // EWMA weight, zero → 0.2
	PromoteThreshold   int                        // consecutive correct, zero → 3
	DemoteThreshold    int                        // consecutive misses, zero → 2
	DwellWindow        time.Duration              // min gap between demotions, zero → 10m
	ResponseCeilingsMs [record.LevelCount]int64   // zero array → DefaultResponseCeilingsMs
}

// Tracker owns all UserFactMastery records and implements the boundary
// level state machine. Not safe for concurrent use on the same user; the
// host serializes per-user calls (single-writer per user).
type Tracker struct {
	cfg     Config
	records map[string]map[string]*record.UserFactMastery // userID → factID
}

// UpdateResult reports the outcome of one Update call.
type UpdateResult struct {
	PreviousLevel record.BoundaryLevel
	NewLevel      record.BoundaryLevel
	Changed       bool
	MasteryScore  float64
}

// NewTracker creates a Tracker from the given config. Zero-value fields are
// filled with defaults; invalid values return ErrInvalidConfig.
func NewTracker(cfg Config) (*Tracker, error) {
	if cfg.Alpha == 0 {
		cfg.Alpha = DefaultAlpha
	}
	if cfg.Alpha < 0 || cfg.Alpha > 1 {
		return nil, fmt.Errorf("%w: alpha %f outside (0, 1]", ErrInvalidConfig, cfg.Alpha)
	}
	if cfg.PromoteThreshold == 0 {
		cfg.PromoteThreshold = DefaultPromoteThreshold
	}
	if cfg.PromoteThreshold < 1 {
		return nil, fmt.Errorf("%w: promote threshold %d must be at least 1", ErrInvalidConfig, cfg.PromoteThreshold)
	}
	if cfg.DemoteThreshold == 0 {
		cfg.DemoteThreshold = DefaultDemoteThreshold
	}
	if cfg.DemoteThreshold < 1 {
		return nil, fmt.Errorf("%w: demote threshold %d must be at least 1", ErrInvalidConfig, cfg.DemoteThreshold)
	}
	if cfg.DwellWindow == 0 {
		cfg.DwellWindow = DefaultDwellWindow
	}
	if cfg.DwellWindow < 0 {
		return nil, fmt.Errorf("%w: dwell window %s must not be negative", ErrInvalidConfig, cfg.DwellWindow)
	}
	if cfg.ResponseCeilingsMs == ([record.LevelCount]int64{}) {
		cfg.ResponseCeilingsMs = DefaultResponseCeilingsMs
	}
	for i, c := range cfg.ResponseCeilingsMs {
		if c <= 0 {
			return nil, fmt.Errorf("%w: response ceiling for level %d is %dms", ErrInvalidConfig, i+1, c)
		}
	}

	return &Tracker{
		cfg:     cfg,
		records: make(map[string]map[string]*record.UserFactMastery),
	}, nil
}

// Config returns the effective (defaulted) configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// Level returns the current boundary level for a (user, fact) pair.
// Returns ErrNoMasteryData if the fact has never been initialized for the
// user; the caller is expected to Initialize lazily in that case.
func (t *Tracker) Level(userID, factID string) (record.BoundaryLevel, error) {
	rec := t.lookup(userID, factID)
	if rec == nil {
		return 0, fmt.Errorf("%w: user %s fact %s", ErrNoMasteryData, userID, factID)
	}
	return rec.Level, nil
}

// Record returns a copy of the full mastery record for a (user, fact) pair.
func (t *Tracker) Record(userID, factID string) (record.UserFactMastery, error) {
	rec := t.lookup(userID, factID)
	if rec == nil {
		return record.UserFactMastery{}, fmt.Errorf("%w: user %s fact %s", ErrNoMasteryData, userID, factID)
	}
	return rec.Clone(), nil
}

// Initialize creates the mastery record for first exposure to a fact.
// A zero level defaults to LevelCategory (level 1). Returns
// ErrAlreadyInitialized if a record already exists: mastery history is
// monotonic and never recreated.
func (t *Tracker) Initialize(userID, factID string, level record.BoundaryLevel) (record.UserFactMastery, error) {
	if level == 0 {
		level = record.LevelCategory
	}
	if !level.IsValid() {
		return record.UserFactMastery{}, fmt.Errorf("%w: %d", record.ErrInvalidLevel, int(level))
	}
	if t.lookup(userID, factID) != nil {
		return record.UserFactMastery{}, fmt.Errorf("%w: user %s fact %s", ErrAlreadyInitialized, userID, factID)
	}

	rec := &record.UserFactMastery{
		UserID: userID,
		FactID: factID,
		Level:  level,
	}
	t.store(rec)

	slog.Debug("mastery record initialized",
		"user_id", userID,
		"fact_id", factID,
		"level", level.String(),
	)
	return rec.Clone(), nil
}

// Update applies one graded answer to the (user, fact) mastery record and
// runs the promotion/demotion state machine. The level moves by at most one
// step per call. Returns ErrNoMasteryData if the fact was never initialized.
//
// The record is only mutated after the performance validates, so a rejected
// update leaves the store untouched.
func (t *Tracker) Update(userID, factID string, p record.Performance, now time.Time) (UpdateResult, error) {
	if err := p.Validate(); err != nil {
		return UpdateResult{}, err
	}
	rec := t.lookup(userID, factID)
	if rec == nil {
		return UpdateResult{}, fmt.Errorf("%w: user %s fact %s", ErrNoMasteryData, userID, factID)
	}

	prev := rec.Level

	// EWMA: score' = score + α·(outcome − score).
	outcome := 0.0
	if p.CorrectFirstAttempt {
		outcome = 1.0
	}
	rec.MasteryScore += t.cfg.Alpha * (outcome - rec.MasteryScore)

	if p.CorrectFirstAttempt {
		rec.ConsecutiveCorrect++
		rec.ConsecutiveMisses = 0
		if t.shouldPromote(rec, p.ResponseTimeMs) {
			rec.Level++
			resetStreaks(rec)
		}
	} else {
		rec.ConsecutiveCorrect = 0
		rec.ConsecutiveMisses++
		if t.shouldDemote(rec, now) {
			rec.Level--
			resetStreaks(rec)
			demotedAt := now
			rec.LastDemotionAt = &demotedAt
		}
	}

	responseMs := p.ResponseTimeMs
	rec.LastResponseMs = &responseMs
	attemptAt := now
	rec.LastAttemptAt = &attemptAt

	if rec.Level != prev {
		slog.Info("boundary level changed",
			"user_id", userID,
			"fact_id", factID,
			"previous_level", prev.String(),
			"new_level", rec.Level.String(),
			"mastery_score", rec.MasteryScore,
		)
	}

	return UpdateResult{
		PreviousLevel: prev,
		NewLevel:      rec.Level,
		Changed:       rec.Level != prev,
		MasteryScore:  rec.MasteryScore,
	}, nil
}

// shouldPromote checks the promotion rule: streak at threshold, response
// strictly under the level ceiling (a response exactly at the ceiling does
// not promote), and headroom above the current level.
func (t *Tracker) shouldPromote(rec *record.UserFactMastery, responseMs int64) bool {
	if rec.Level >= record.LevelNearMiss {
		return false
	}
	if rec.ConsecutiveCorrect < t.cfg.PromoteThreshold {
		return false
	}
	return responseMs < t.cfg.ResponseCeilingsMs[rec.Level-1]
}

// shouldDemote checks the demotion rule: miss streak at threshold, floor
// below the current level, and the dwell window elapsed since the last
// demotion. Demotion is deliberately stricter than promotion; the asymmetry
// plus the dwell floor is what prevents oscillation.
func (t *Tracker) shouldDemote(rec *record.UserFactMastery, now time.Time) bool {
	if rec.Level <= record.LevelCategory {
		return false
	}
	if rec.ConsecutiveMisses < t.cfg.DemoteThreshold {
		return false
	}
	return rec.LastDemotionAt == nil || now.Sub(*rec.LastDemotionAt) >= t.cfg.DwellWindow
}

// resetStreaks clears both streak counters. Called on every level change so
// one streak can never cross two boundaries.
func resetStreaks(rec *record.UserFactMastery) {
	rec.ConsecutiveCorrect = 0
	rec.ConsecutiveMisses = 0
}

// Export returns copies of all mastery records for a user, ordered by fact
// ID. Used by the persistence gateway; an unknown user exports nil.
func (t *Tracker) Export(userID string) []record.UserFactMastery {
	byFact := t.records[userID]
	if len(byFact) == 0 {
		return nil
	}
	out := make([]record.UserFactMastery, 0, len(byFact))
	for _, rec := range byFact {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FactID < out[j].FactID })
	return out
}

// Load rehydrates mastery records, replacing any existing records for the
// users they belong to. Records with invalid levels, scores, or negative
// streaks are rejected before anything is replaced (all-or-nothing).
func (t *Tracker) Load(records []record.UserFactMastery) error {
	for _, rec := range records {
		if !rec.Level.IsValid() {
			return fmt.Errorf("%w: %d (user %s fact %s)", record.ErrInvalidLevel, int(rec.Level), rec.UserID, rec.FactID)
		}
		if rec.MasteryScore < 0 || rec.MasteryScore > 1 {
			return fmt.Errorf("%w: mastery score %f outside [0, 1] (user %s fact %s)",
				record.ErrInvalidPerformance, rec.MasteryScore, rec.UserID, rec.FactID)
		}
		if rec.ConsecutiveCorrect < 0 || rec.ConsecutiveMisses < 0 {
			return fmt.Errorf("%w: negative streak %d/%d (user %s fact %s)",
				record.ErrInvalidPerformance, rec.ConsecutiveCorrect, rec.ConsecutiveMisses, rec.UserID, rec.FactID)
		}
	}
	for _, rec := range records {
		clone := rec.Clone()
		t.store(&clone)
	}
	return nil
}

func (t *Tracker) lookup(userID, factID string) *record.UserFactMastery {
	return t.records[userID][factID]
}

func (t *Tracker) store(rec *record.UserFactMastery) {
	byFact, ok := t.records[rec.UserID]
	if !ok {
		byFact = make(map[string]*record.UserFactMastery)
		t.records[rec.UserID] = byFact
	}
	byFact[rec.FactID] = rec
}
