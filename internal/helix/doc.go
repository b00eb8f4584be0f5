// Package helix implements the triple-helix path rotation scheme.
//
// Every user has exactly three learning paths. One is active (questions are
// drawn from it); the other two are preparing (their queues are being
// pre-computed). Rotation demotes the active path to preparing and promotes
// whichever preparing path has waited longest, so over three rotations each
// path is active exactly once — round-robin, never arbitrary.
//
// Each path carries its own difficulty level, updated independently of the
// other two: the three paths represent independently-progressing topics.
package helix
