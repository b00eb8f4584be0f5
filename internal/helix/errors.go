package helix

import "errors"

// Sentinel errors for the helix package.
// Use errors.Is to check: errors.Is(err, helix.ErrNoHelixState)
var (
	ErrNoHelixState       = errors.New("helix: no triple helix state for user")
	ErrNoActivePath       = errors.New("helix: no active path")
	ErrAlreadyInitialized = errors.New("helix: user already initialized")
	ErrUnknownPath        = errors.New("helix: unknown path")
	ErrInvalidDifficulty  = errors.New("helix: difficulty outside [1, 5]")
	ErrCorruptState       = errors.New("helix: rotation invariant violated")
)
