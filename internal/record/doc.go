// Package record defines the shared record types for the sequencing engine.
//
// Each record type is exclusively owned and mutated by one component:
//
//   - UserFactMastery: owned by mastery.Tracker
//   - queue positions (Snapshot.Queues): owned by reposition.Engine
//   - TripleHelixState: owned by helix.Rotator
//
// The sequencer facade only reads these records and delegates writes to the
// owning component. Keeping the types in one package gives the persistence
// gateway and the test harness a single, stable serialization surface.
//
// Canonical serialization (MarshalCanonical, SnapshotHash) produces
// byte-stable output for golden traces and snapshot integrity checks.
package record
