// Package sequencer is the facade over the three sequencing components:
// the boundary mastery tracker, the spaced-repetition queue engine, and the
// triple-helix rotator. Hosts talk to the facade only; they never touch the
// components directly, so the tracker-then-queue update order and the
// exactly-one-active rotation invariant cannot be bypassed.
//
// The facade is pure in-memory state with no I/O. Persistence lives in the
// store package, which saves and loads record.Snapshot values produced here.
//
// Single-writer per user: callers serialize operations for a given user.
// Different users may be driven from different goroutines only if the whole
// facade is externally locked.
package sequencer
