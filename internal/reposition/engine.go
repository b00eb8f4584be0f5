package reposition

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/helixlearn/helix/internal/record"
)

// Defaults for the skip computation. BaseSkip is scaled by squared accuracy
// and the speed factor, then clamped to [MinSkip, queueLength-1].
const (
	DefaultBaseSkip           = 30
	DefaultMinSkip            = 1
	DefaultExpectedResponseMs = 3000
	DefaultMinSpeedFactor     = 0.5
	DefaultMaxSpeedFactor     = 1.5
)

// SkipConfig tunes the skip computation. Zero values produce the defaults
// above; invalid values are rejected by NewEngine.
type SkipConfig struct {
	BaseSkip           int     // zero → 30
	MinSkip            int     // zero → 1
	ExpectedResponseMs int64   // zero → 3000
	MinSpeedFactor     float64 // zero → 0.5
	MaxSpeedFactor     float64 // zero → 1.5
}

// Engine owns the per-(user, path) stitch queues and is the only component
// that mutates queue positions. Not safe for concurrent use on the same
// user; the host serializes per-user calls.
type Engine struct {
	cfg    SkipConfig
	queues map[string]map[string][]string // userID → pathID → ordered stitch IDs
}

// Result reports the outcome of one Reposition call.
type Result struct {
	PreviousPosition int
	NewPosition      int
	SkipNumber       int
}

// NewEngine creates an Engine from the given config. Zero-value fields are
// filled with defaults; invalid values return ErrInvalidConfig.
func NewEngine(cfg SkipConfig) (*Engine, error) {
	if cfg.BaseSkip == 0 {
		cfg.BaseSkip = DefaultBaseSkip
	}
	if cfg.BaseSkip < 1 {
		return nil, fmt.Errorf("%w: base skip %d must be at least 1", ErrInvalidConfig, cfg.BaseSkip)
	}
	if cfg.MinSkip == 0 {
		cfg.MinSkip = DefaultMinSkip
	}
	if cfg.MinSkip < 1 {
		return nil, fmt.Errorf("%w: min skip %d must be at least 1", ErrInvalidConfig, cfg.MinSkip)
	}
	if cfg.ExpectedResponseMs == 0 {
		cfg.ExpectedResponseMs = DefaultExpectedResponseMs
	}
	if cfg.ExpectedResponseMs < 1 {
		return nil, fmt.Errorf("%w: expected response %dms must be positive", ErrInvalidConfig, cfg.ExpectedResponseMs)
	}
	if cfg.MinSpeedFactor == 0 {
		cfg.MinSpeedFactor = DefaultMinSpeedFactor
	}
	if cfg.MaxSpeedFactor == 0 {
		cfg.MaxSpeedFactor = DefaultMaxSpeedFactor
	}
	if cfg.MinSpeedFactor <= 0 || cfg.MaxSpeedFactor < cfg.MinSpeedFactor {
		return nil, fmt.Errorf("%w: speed factor bounds [%f, %f]", ErrInvalidConfig, cfg.MinSpeedFactor, cfg.MaxSpeedFactor)
	}

	return &Engine{
		cfg:    cfg,
		queues: make(map[string]map[string][]string),
	}, nil
}

// Config returns the effective (defaulted) configuration.
func (e *Engine) Config() SkipConfig {
	return e.cfg
}

// InitQueue installs the initial ordered stitch list for a (user, path).
// The list comes from the content provider at user-initialization time.
// Returns ErrAlreadyInitialized if the queue exists and ErrDuplicateStitch
// if the list contains a stitch twice.
func (e *Engine) InitQueue(userID, pathID string, stitchIDs []string) error {
	if len(stitchIDs) == 0 {
		return fmt.Errorf("%w: path %s", ErrEmptyQueue, pathID)
	}
	if _, ok := e.queues[userID][pathID]; ok {
		return fmt.Errorf("%w: user %s path %s", ErrAlreadyInitialized, userID, pathID)
	}
	if err := checkDistinct(stitchIDs); err != nil {
		return fmt.Errorf("user %s path %s: %w", userID, pathID, err)
	}
	e.install(userID, pathID, slices.Clone(stitchIDs))

	slog.Debug("stitch queue initialized",
		"user_id", userID,
		"path_id", pathID,
		"stitch_count", len(stitchIDs),
	)
	return nil
}

// Front returns the stitch at position 0 of the path's queue.
func (e *Engine) Front(userID, pathID string) (string, error) {
	q, err := e.queue(userID, pathID)
	if err != nil {
		return "", err
	}
	return q[0], nil
}

// Stitches returns a copy of the path's queue in position order.
func (e *Engine) Stitches(userID, pathID string) ([]string, error) {
	q, err := e.queue(userID, pathID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(q), nil
}

// Contains reports whether the stitch is present in the path's queue.
func (e *Engine) Contains(userID, pathID, stitchID string) bool {
	q, err := e.queue(userID, pathID)
	if err != nil {
		return false
	}
	return slices.Contains(q, stitchID)
}

// Positions returns the stitch → position mapping for a path's queue. The
// values are a dense permutation of 0..N-1 by construction.
func (e *Engine) Positions(userID, pathID string) (map[string]int, error) {
	q, err := e.queue(userID, pathID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(q))
	for i, id := range q {
		out[id] = i
	}
	return out, nil
}

// CalculateSkip computes the forward displacement for a just-attempted
// stitch:
//
//	ratio       = correct / total                       ∈ [0, 1]
//	speedFactor = clamp(expected / avg, 0.5, 1.5)
//	skip        = round(BaseSkip · ratio² · speedFactor)
//	skip        = clamp(skip, MinSkip, queueLength-1)
//
// A queue of length 1 has nowhere to move, so the skip is 0.
func (e *Engine) CalculateSkip(p record.Performance, queueLength int) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if queueLength < 1 {
		return 0, fmt.Errorf("%w: length %d", ErrEmptyQueue, queueLength)
	}
	if queueLength == 1 {
		return 0, nil
	}

	ratio := p.Ratio()
	speed := float64(e.cfg.ExpectedResponseMs) / float64(p.AvgResponseTimeMs)
	speed = math.Min(math.Max(speed, e.cfg.MinSpeedFactor), e.cfg.MaxSpeedFactor)

	skip := int(math.Round(float64(e.cfg.BaseSkip) * ratio * ratio * speed))
	maxSkip := queueLength - 1
	if skip < e.cfg.MinSkip {
		skip = e.cfg.MinSkip
	}
	if skip > maxSkip {
		skip = maxSkip
	}
	return skip, nil
}

// Reposition removes the stitch from its current position and reinserts it
// skip slots forward (capped at the queue end), shifting everything in
// between back by one slot. The reordered queue is built first and swapped
// in whole, so no partially-shifted queue is ever observable.
func (e *Engine) Reposition(userID, pathID, stitchID string, p record.Performance) (Result, error) {
	q, err := e.queue(userID, pathID)
	if err != nil {
		return Result{}, err
	}
	prev := slices.Index(q, stitchID)
	if prev < 0 {
		return Result{}, fmt.Errorf("%w: user %s path %s stitch %s", ErrStitchNotFound, userID, pathID, stitchID)
	}

	skip, err := e.CalculateSkip(p, len(q))
	if err != nil {
		return Result{}, err
	}

	next := prev + skip
	if last := len(q) - 1; next > last {
		next = last
	}

	reordered := make([]string, 0, len(q))
	reordered = append(reordered, q[:prev]...)
	reordered = append(reordered, q[prev+1:]...)
	reordered = slices.Insert(reordered, next, stitchID)
	if err := checkDistinct(reordered); err != nil {
		// A duplicate here means the shift logic corrupted the permutation.
		return Result{}, fmt.Errorf("reposition produced corrupt queue: %w", err)
	}
	e.install(userID, pathID, reordered)

	slog.Debug("stitch repositioned",
		"user_id", userID,
		"path_id", pathID,
		"stitch_id", stitchID,
		"previous_position", prev,
		"new_position", next,
		"skip", skip,
	)
	return Result{PreviousPosition: prev, NewPosition: next, SkipNumber: skip}, nil
}

// Export returns copies of all queues for a user, keyed by path ID.
// Used by the persistence gateway; an unknown user exports nil.
func (e *Engine) Export(userID string) map[string][]string {
	byPath := e.queues[userID]
	if len(byPath) == 0 {
		return nil
	}
	out := make(map[string][]string, len(byPath))
	for pathID, q := range byPath {
		out[pathID] = slices.Clone(q)
	}
	return out
}

// Load rehydrates a user's queues, replacing any existing ones. All queues
// are validated before anything is replaced (all-or-nothing).
func (e *Engine) Load(userID string, queues map[string][]string) error {
	for pathID, q := range queues {
		if len(q) == 0 {
			return fmt.Errorf("%w: user %s path %s", ErrEmptyQueue, userID, pathID)
		}
		if err := checkDistinct(q); err != nil {
			return fmt.Errorf("user %s path %s: %w", userID, pathID, err)
		}
	}
	for pathID, q := range queues {
		e.install(userID, pathID, slices.Clone(q))
	}
	return nil
}

func (e *Engine) queue(userID, pathID string) ([]string, error) {
	q, ok := e.queues[userID][pathID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s path %s", ErrQueueNotFound, userID, pathID)
	}
	if len(q) == 0 {
		return nil, fmt.Errorf("%w: user %s path %s", ErrEmptyQueue, userID, pathID)
	}
	return q, nil
}

func (e *Engine) install(userID, pathID string, q []string) {
	byPath, ok := e.queues[userID]
	if !ok {
		byPath = make(map[string][]string)
		e.queues[userID] = byPath
	}
	byPath[pathID] = q
}

// checkDistinct verifies that no stitch appears twice. Distinct IDs over a
// slice representation are exactly the dense-permutation invariant.
func checkDistinct(stitchIDs []string) error {
	seen := make(map[string]struct{}, len(stitchIDs))
	for _, id := range stitchIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateStitch, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
