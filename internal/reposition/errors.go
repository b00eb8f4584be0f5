package reposition

import "errors"

// Sentinel errors for the reposition package.
// Use errors.Is to check: errors.Is(err, reposition.ErrStitchNotFound)
var (
	ErrQueueNotFound      = errors.New("reposition: no queue for path")
	ErrStitchNotFound     = errors.New("reposition: stitch not in queue")
	ErrEmptyQueue         = errors.New("reposition: queue is empty")
	ErrAlreadyInitialized = errors.New("reposition: queue already initialized")
	ErrDuplicateStitch    = errors.New("reposition: duplicate stitch in queue")
	ErrInvalidConfig      = errors.New("reposition: invalid skip config")
)
