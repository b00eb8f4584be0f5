package sequencer

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/helixlearn/helix/internal/config"
	"github.com/helixlearn/helix/internal/helix"
	"github.com/helixlearn/helix/internal/mastery"
	"github.com/helixlearn/helix/internal/record"
	"github.com/helixlearn/helix/internal/reposition"
)

// FactRepository resolves fact IDs to fact content. The facade never
// derives mastery from fact content; it only verifies existence and hands
// facts to the host for presentation.
type FactRepository interface {
	FactByID(id string) (record.Fact, error)
}

// ContentProvider supplies the fixed content set: exactly three learning
// paths and the ordered stitches belonging to each.
type ContentProvider interface {
	PathIDs() [3]string
	StitchesForPath(pathID string) ([]record.Stitch, error)
}

// Trigger says why MaybeRotate was called.
type Trigger int

const (
	// TriggerManual forces a rotation unconditionally.
	TriggerManual Trigger = iota + 1
	// TriggerCadence rotates only when enough answers have accumulated
	// since the last rotation.
	TriggerCadence
)

// String implements fmt.Stringer.
func (t Trigger) String() string {
	switch t {
	case TriggerManual:
		return "manual"
	case TriggerCadence:
		return "cadence"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// QuestionSource identifies what to present next: the active path, the
// stitch at the front of its queue, and the primary fact with its current
// boundary level.
type QuestionSource struct {
	PathID        string
	StitchID      string
	Fact          record.Fact
	BoundaryLevel record.BoundaryLevel
}

// AnswerResult reports everything one answer changed: the mastery update,
// the queue repositioning, and the immutable attempt log entry the host
// should persist.
type AnswerResult struct {
	Mastery mastery.UpdateResult
	Queue   reposition.Result
	Attempt record.Attempt
}

// Option customizes a Facade.
type Option func(*Facade)

// WithTimeSource replaces time.Now, for deterministic tests and replays.
func WithTimeSource(now func() time.Time) Option {
	return func(f *Facade) { f.now = now }
}

// WithAttemptIDs replaces the UUIDv7 attempt ID generator.
func WithAttemptIDs(gen AttemptIDGenerator) Option {
	return func(f *Facade) { f.ids = gen }
}

// WithClock replaces the logical clock, for resuming a persisted attempt
// log at its last sequence number.
func WithClock(clock *Clock) Option {
	return func(f *Facade) { f.clock = clock }
}

// Facade composes the mastery tracker, the repositioning engine, and the
// path rotator behind one API. See the package comment for the concurrency
// contract.
type Facade struct {
	tracker *mastery.Tracker
	queues  *reposition.Engine
	rotator *helix.Rotator

	facts    FactRepository
	content  ContentProvider
	stitches map[string]record.Stitch // stitch ID → stitch, read-only content index

	clock       *Clock
	ids         AttemptIDGenerator
	now         func() time.Time
	rotateEvery int            // 0 disables cadence rotation
	answers     map[string]int // per-user answers since last rotation
}

// New builds a Facade from tunables and content. All stitches are indexed
// and validated up front: every stitch must belong to its declared path,
// carry at least one fact, and every fact must resolve in the repository.
func New(tun config.Tunables, facts FactRepository, content ContentProvider, opts ...Option) (*Facade, error) {
	trackerCfg, err := tun.TrackerConfig()
	if err != nil {
		return nil, err
	}
	tracker, err := mastery.NewTracker(trackerCfg)
	if err != nil {
		return nil, err
	}
	queues, err := reposition.NewEngine(tun.SkipConfig())
	if err != nil {
		return nil, err
	}

	f := &Facade{
		tracker:     tracker,
		queues:      queues,
		rotator:     helix.NewRotator(),
		facts:       facts,
		content:     content,
		stitches:    make(map[string]record.Stitch),
		clock:       NewClock(),
		ids:         UUIDv7Generator{},
		now:         time.Now,
		rotateEvery: tun.EffectiveRotateEvery(),
		answers:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := f.indexContent(); err != nil {
		return nil, err
	}
	return f, nil
}

// indexContent loads and validates the full content set once.
func (f *Facade) indexContent() error {
	for _, pathID := range f.content.PathIDs() {
		stitches, err := f.content.StitchesForPath(pathID)
		if err != nil {
			return fmt.Errorf("sequencer: load path %s: %w", pathID, err)
		}
		if len(stitches) == 0 {
			return fmt.Errorf("sequencer: path %s has no stitches", pathID)
		}
		for _, s := range stitches {
			if s.PathID != pathID {
				return fmt.Errorf("sequencer: stitch %s declares path %s but was listed under %s",
					s.ID, s.PathID, pathID)
			}
			if len(s.FactIDs) == 0 {
				return fmt.Errorf("sequencer: stitch %s has no facts", s.ID)
			}
			if _, dup := f.stitches[s.ID]; dup {
				return fmt.Errorf("sequencer: stitch %s appears twice", s.ID)
			}
			for _, factID := range s.FactIDs {
				if _, err := f.facts.FactByID(factID); err != nil {
					return fmt.Errorf("%w: stitch %s references %s", ErrFactUnknown, s.ID, factID)
				}
			}
			f.stitches[s.ID] = s
		}
	}
	return nil
}

// InitializeUser creates the user's queues and triple helix state and
// returns the initial snapshot. The first declared path starts active.
// A zero initialDifficulty defaults to 1.
func (f *Facade) InitializeUser(userID string, initialDifficulty int) (record.Snapshot, error) {
	const op = "InitializeUser"

	pathIDs := f.content.PathIDs()
	if _, err := f.rotator.Initialize(userID, pathIDs, initialDifficulty); err != nil {
		return record.Snapshot{}, wrap(op, userID, err)
	}
	for _, pathID := range pathIDs {
		stitches, err := f.content.StitchesForPath(pathID)
		if err != nil {
			return record.Snapshot{}, wrap(op, userID, err)
		}
		ids := make([]string, len(stitches))
		for i, s := range stitches {
			ids[i] = s.ID
		}
		if err := f.queues.InitQueue(userID, pathID, ids); err != nil {
			return record.Snapshot{}, wrap(op, userID, err)
		}
		if err := f.refreshPointers(userID, pathID); err != nil {
			return record.Snapshot{}, wrap(op, userID, err)
		}
	}

	slog.Info("user initialized",
		"user_id", userID,
		"paths", pathIDs,
		"difficulty", initialDifficulty,
	)
	return f.Snapshot(userID)
}

// NextQuestionSource returns the stitch to present next: the front of the
// active path's queue, with the primary fact's boundary level. Mastery
// records are created lazily at level 1 on first exposure.
func (f *Facade) NextQuestionSource(userID string) (QuestionSource, error) {
	const op = "NextQuestionSource"

	active, err := f.rotator.Active(userID)
	if err != nil {
		return QuestionSource{}, wrap(op, userID, err)
	}
	front, err := f.queues.Front(userID, active.PathID)
	if err != nil {
		return QuestionSource{}, wrap(op, userID, err)
	}
	stitch, ok := f.stitches[front]
	if !ok {
		return QuestionSource{}, wrap(op, userID, fmt.Errorf("%w: %s", ErrStitchUnknown, front))
	}

	factID := stitch.PrimaryFactID()
	fact, err := f.facts.FactByID(factID)
	if err != nil {
		return QuestionSource{}, wrap(op, userID, fmt.Errorf("%w: %s", ErrFactUnknown, factID))
	}
	level, err := f.tracker.Level(userID, factID)
	if err != nil {
		rec, initErr := f.tracker.Initialize(userID, factID, 0)
		if initErr != nil {
			return QuestionSource{}, wrap(op, userID, initErr)
		}
		level = rec.Level
	}

	if err := f.refreshPointers(userID, active.PathID); err != nil {
		return QuestionSource{}, wrap(op, userID, err)
	}
	return QuestionSource{
		PathID:        active.PathID,
		StitchID:      stitch.ID,
		Fact:          fact,
		BoundaryLevel: level,
	}, nil
}

// RecordAnswer applies one answer: the mastery tracker updates first, then
// the stitch is repositioned in its path's queue using the same performance
// sample. An empty factID defaults to the stitch's primary fact. Every
// input is validated before any component mutates, so a returned error
// means nothing changed.
func (f *Facade) RecordAnswer(userID, pathID, stitchID, factID string, p record.Performance) (AnswerResult, error) {
	const op = "RecordAnswer"

	if err := p.Validate(); err != nil {
		return AnswerResult{}, wrap(op, userID, err)
	}
	stitch, ok := f.stitches[stitchID]
	if !ok {
		return AnswerResult{}, wrap(op, userID, fmt.Errorf("%w: %s", ErrStitchUnknown, stitchID))
	}
	if stitch.PathID != pathID {
		return AnswerResult{}, wrap(op, userID,
			fmt.Errorf("%w: stitch %s belongs to path %s, not %s", ErrStitchUnknown, stitchID, stitch.PathID, pathID))
	}
	if factID == "" {
		factID = stitch.PrimaryFactID()
	}
	if _, err := f.facts.FactByID(factID); err != nil {
		return AnswerResult{}, wrap(op, userID, fmt.Errorf("%w: %s", ErrFactUnknown, factID))
	}
	factInStitch := false
	for _, id := range stitch.FactIDs {
		if id == factID {
			factInStitch = true
			break
		}
	}
	if !factInStitch {
		return AnswerResult{}, wrap(op, userID,
			fmt.Errorf("%w: fact %s not in stitch %s", record.ErrInvalidPerformance, factID, stitchID))
	}
	if !f.queues.Contains(userID, pathID, stitchID) {
		return AnswerResult{}, wrap(op, userID,
			fmt.Errorf("%w: %s in path %s", reposition.ErrStitchNotFound, stitchID, pathID))
	}

	if _, err := f.tracker.Level(userID, factID); err != nil {
		if _, initErr := f.tracker.Initialize(userID, factID, 0); initErr != nil {
			return AnswerResult{}, wrap(op, userID, initErr)
		}
	}

	now := f.now()
	masteryRes, err := f.tracker.Update(userID, factID, p, now)
	if err != nil {
		return AnswerResult{}, wrap(op, userID, err)
	}
	// Pre-checks above make a repositioning failure impossible short of a
	// coding defect; the tracker update has already landed at this point.
	queueRes, err := f.queues.Reposition(userID, pathID, stitchID, p)
	if err != nil {
		return AnswerResult{}, &Error{Code: CodeInvariantViolation, Op: op, UserID: userID, Err: err}
	}
	if err := f.refreshPointers(userID, pathID); err != nil {
		return AnswerResult{}, wrap(op, userID, err)
	}

	attempt := record.Attempt{
		ID:          f.ids.Generate(),
		UserID:      userID,
		PathID:      pathID,
		StitchID:    stitchID,
		FactID:      factID,
		Performance: p,
		Seq:         f.clock.Next(),
		RecordedAt:  now,
	}
	f.answers[userID]++

	slog.Debug("answer recorded",
		"user_id", userID,
		"stitch_id", stitchID,
		"fact_id", factID,
		"level", masteryRes.NewLevel,
		"level_changed", masteryRes.Changed,
		"skip", queueRes.SkipNumber,
		"seq", attempt.Seq,
	)
	return AnswerResult{Mastery: masteryRes, Queue: queueRes, Attempt: attempt}, nil
}

// Rotate forces a helix rotation and refreshes the new active path's
// stitch pointers.
func (f *Facade) Rotate(userID string) (helix.RotationResult, error) {
	const op = "Rotate"

	res, err := f.rotator.Rotate(userID, f.now())
	if err != nil {
		return helix.RotationResult{}, wrap(op, userID, err)
	}
	f.answers[userID] = 0
	if err := f.refreshPointers(userID, res.NewActive); err != nil {
		return helix.RotationResult{}, wrap(op, userID, err)
	}
	return res, nil
}

// MaybeRotate rotates if the trigger fires. TriggerManual always rotates;
// TriggerCadence rotates only once the user has answered rotateEvery
// questions since the last rotation. Returns nil when no rotation happened.
func (f *Facade) MaybeRotate(userID string, trigger Trigger) (*helix.RotationResult, error) {
	const op = "MaybeRotate"

	switch trigger {
	case TriggerManual:
	case TriggerCadence:
		if f.rotateEvery <= 0 || f.answers[userID] < f.rotateEvery {
			return nil, nil
		}
	default:
		return nil, &Error{Code: CodeInvalidInput, Op: op, UserID: userID,
			Err: fmt.Errorf("unknown trigger %d", int(trigger))}
	}
	res, err := f.Rotate(userID)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SetDifficulty updates one path's difficulty without touching the other
// two paths or the rotation order.
func (f *Facade) SetDifficulty(userID, pathID string, difficulty int) (record.PathState, error) {
	path, err := f.rotator.SetDifficulty(userID, pathID, difficulty)
	if err != nil {
		return record.PathState{}, wrap("SetDifficulty", userID, err)
	}
	return path, nil
}

// HelixState returns the user's full triple helix state.
func (f *Facade) HelixState(userID string) (record.TripleHelixState, error) {
	state, err := f.rotator.State(userID)
	if err != nil {
		return record.TripleHelixState{}, wrap("HelixState", userID, err)
	}
	return state, nil
}

// Snapshot exports the user's full engine state for persistence.
func (f *Facade) Snapshot(userID string) (record.Snapshot, error) {
	helixState, err := f.rotator.State(userID)
	if err != nil {
		return record.Snapshot{}, wrap("Snapshot", userID, err)
	}
	return record.Snapshot{
		UserID:               userID,
		Mastery:              f.tracker.Export(userID),
		Queues:               f.queues.Export(userID),
		Helix:                helixState,
		AnswersSinceRotation: f.answers[userID],
	}, nil
}

// LoadSnapshot rehydrates one user from a persisted snapshot. Each
// component validates its slice of the snapshot before installing it; on
// error the facade may hold a partial load and must be discarded.
func (f *Facade) LoadSnapshot(snap record.Snapshot) error {
	const op = "LoadSnapshot"

	if snap.Helix.UserID != snap.UserID {
		return &Error{Code: CodeInvalidInput, Op: op, UserID: snap.UserID,
			Err: fmt.Errorf("helix state belongs to %q", snap.Helix.UserID)}
	}
	if snap.AnswersSinceRotation < 0 {
		return &Error{Code: CodeInvalidInput, Op: op, UserID: snap.UserID,
			Err: fmt.Errorf("answers since rotation is %d", snap.AnswersSinceRotation)}
	}
	for _, rec := range snap.Mastery {
		if rec.UserID != snap.UserID {
			return &Error{Code: CodeInvalidInput, Op: op, UserID: snap.UserID,
				Err: fmt.Errorf("mastery record for fact %s belongs to %q", rec.FactID, rec.UserID)}
		}
	}
	if err := f.rotator.Load(snap.Helix); err != nil {
		return wrap(op, snap.UserID, err)
	}
	if err := f.queues.Load(snap.UserID, snap.Queues); err != nil {
		return wrap(op, snap.UserID, err)
	}
	if err := f.tracker.Load(snap.Mastery); err != nil {
		return wrap(op, snap.UserID, err)
	}
	f.answers[snap.UserID] = snap.AnswersSinceRotation
	return nil
}

// refreshPointers mirrors a path's queue head into the helix state so the
// current/next stitch pointers stay consistent with the queue.
func (f *Facade) refreshPointers(userID, pathID string) error {
	q, err := f.queues.Stitches(userID, pathID)
	if err != nil {
		return err
	}
	next := ""
	if len(q) > 1 {
		next = q[1]
	}
	return f.rotator.SetStitchPointers(userID, pathID, q[0], next)
}
