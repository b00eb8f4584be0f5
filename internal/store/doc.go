// Package store provides SQLite-backed durable storage for engine state.
//
// Two kinds of data are persisted:
//   - Snapshots: the full per-user engine state (mastery records, queue
//     orderings, triple helix state), replaced atomically in one
//     transaction per save.
//   - Attempts: an append-only log of answered questions, ordered by the
//     engine's logical seq, never timestamps.
//
// Every saved snapshot is fingerprinted with a domain-separated SHA-256
// over its canonical JSON form. The fingerprint is recomputed on load and
// compared, so silent row-level corruption surfaces as ErrCorruptSnapshot
// instead of feeding bad state back into the engine.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// SQLite supports one writer at a time, so the connection pool is capped
// at a single connection.
package store
