package sequencer

import "sync/atomic"

// Clock is the monotonic logical clock stamping attempt log entries.
// Every attempt gets a strictly increasing seq so persisted logs replay in
// a stable order regardless of wall-clock resolution.
//
// Safe for concurrent use, though the facade's single-writer discipline
// means one goroutine normally calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a known sequence number, used
// when rehydrating a user whose attempt log already has entries.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the clock's position without advancing it.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
