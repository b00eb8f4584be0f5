package record

import "fmt"

// Performance describes how a learner performed on one stitch attempt.
//
// CorrectFirstAttempt and ResponseTimeMs feed the boundary tracker (mastery
// progression); CorrectCount, TotalCount, and AvgResponseTimeMs summarize the
// whole stitch session and feed the reposition engine (spacing).
type Performance struct {
	CorrectFirstAttempt bool  `json:"correct_first_attempt"`
	ResponseTimeMs      int64 `json:"response_time_ms"`     // this answer
	CorrectCount        int   `json:"correct_count"`        // session total for the stitch
	TotalCount          int   `json:"total_count"`          // session total for the stitch
	AvgResponseTimeMs   int64 `json:"avg_response_time_ms"` // session average for the stitch
}

// Validate checks the performance invariants. A malformed performance must be
// rejected before any state store is touched (all-or-nothing per answer).
func (p Performance) Validate() error {
	if p.TotalCount <= 0 {
		return fmt.Errorf("%w: total count %d must be positive", ErrInvalidPerformance, p.TotalCount)
	}
	if p.CorrectCount < 0 || p.CorrectCount > p.TotalCount {
		return fmt.Errorf("%w: correct count %d outside [0, %d]", ErrInvalidPerformance, p.CorrectCount, p.TotalCount)
	}
	if p.ResponseTimeMs <= 0 {
		return fmt.Errorf("%w: response time %dms must be positive", ErrInvalidPerformance, p.ResponseTimeMs)
	}
	if p.AvgResponseTimeMs <= 0 {
		return fmt.Errorf("%w: average response time %dms must be positive", ErrInvalidPerformance, p.AvgResponseTimeMs)
	}
	return nil
}

// Ratio returns the session accuracy in [0, 1]. The performance must have
// been validated first; Ratio on a zero TotalCount returns 0.
func (p Performance) Ratio() float64 {
	if p.TotalCount <= 0 {
		return 0
	}
	return float64(p.CorrectCount) / float64(p.TotalCount)
}
