package record

import "errors"

// Sentinel errors for the record package.
// Use errors.Is to check: errors.Is(err, record.ErrInvalidPerformance)
var (
	ErrInvalidLevel       = errors.New("record: invalid boundary level")
	ErrInvalidStatus      = errors.New("record: invalid path status")
	ErrInvalidPerformance = errors.New("record: invalid performance")
)
