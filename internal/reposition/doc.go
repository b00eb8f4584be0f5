// Package reposition implements the stitch repositioning algorithm and the
// per-(user, path) stitch queues it operates on.
//
// After a stitch is attempted, a skip number is computed from session
// accuracy and speed, and the stitch is pushed that many slots toward the
// back of its path's queue. A perfect, fast session lands the stitch near
// the back (long delay before repeat); a poor or slow session keeps it near
// the front. Squaring the accuracy ratio makes the spacing curve convex:
// near-perfect performance is rewarded disproportionately.
//
// Queue positions are represented implicitly by slice index, so positions
// within one queue are always a dense permutation of 0..N-1. Repositioning
// builds the reordered queue before swapping it in; a failed call leaves
// the queue untouched.
package reposition
