// Package mastery implements per-(user, fact) boundary level tracking.
//
// Each fact a learner has been exposed to carries one UserFactMastery record
// holding the current boundary level (1..5), an exponentially-weighted
// mastery score, and streak counters. The Tracker is the exclusive owner of
// those records: nothing else in the engine mutates them.
//
// The promotion/demotion state machine is hysteresis-based to prevent level
// oscillation:
//
//   - Promotion moves up exactly one level when the consecutive-correct
//     streak reaches the promote threshold AND the response time is under
//     the level-specific ceiling.
//   - Demotion moves down exactly one level after two consecutive
//     first-attempt misses, and never twice within the dwell window.
//   - Both streak counters reset on every level change, so a single streak
//     can never cross more than one boundary.
package mastery
