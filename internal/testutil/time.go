// Package testutil provides deterministic time and ID sources for tests
// and golden traces.
package testutil

import (
	"sync"
	"time"
)

// TimeSource is a controllable wall clock. Now advances by a fixed step on
// every call, so test traces get distinct but fully reproducible
// timestamps without any sleeping.
//
// All methods are safe for concurrent use.
type TimeSource struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewTimeSource creates a source that starts at start and advances by step
// on every Now call. A zero step freezes the clock.
func NewTimeSource(start time.Time, step time.Duration) *TimeSource {
	return &TimeSource{now: start, step: step}
}

// Now returns the current time and advances the clock by the step.
func (ts *TimeSource) Now() time.Time {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := ts.now
	ts.now = ts.now.Add(ts.step)
	return t
}

// Peek returns the time the next Now call will report, without advancing.
func (ts *TimeSource) Peek() time.Time {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.now
}

// Advance moves the clock forward by d, on top of the per-call step. Used
// to jump past dwell windows without issuing Now calls.
func (ts *TimeSource) Advance(d time.Duration) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.now = ts.now.Add(d)
}
