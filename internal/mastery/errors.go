package mastery

import "errors"

// Sentinel errors for the mastery package.
// Use errors.Is to check: errors.Is(err, mastery.ErrNoMasteryData)
var (
	ErrNoMasteryData      = errors.New("mastery: no mastery data for fact")
	ErrAlreadyInitialized = errors.New("mastery: fact already initialized")
	ErrInvalidConfig      = errors.New("mastery: invalid tracker config")
)
