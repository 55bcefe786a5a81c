// Package store provides SQLite-backed durable storage for recorded
// inference runs.
//
// The store keeps three tables:
//   - runs: run identity (UUIDv7), fingerprint, document, seed, iterations
//   - moves: every accept/reject decision, keyed (run, iteration, step)
//   - samples: every query value, keyed (run, iteration, query_index)
//
// # Critical Patterns
//
// Whole-run atomicity
//   - The Recorder buffers in memory and writes in ONE transaction
//   - An aborted run leaves no partial record
//
// Integer ordering
//   - All replay-relevant ordering uses (iteration, step, query_index)
//     integers, NEVER timestamps
//   - UUIDv7 run ids sort lexically by creation time, so run listings
//     order by id and created_at stays informational
//
// Replay as verification
//   - Replay re-executes a run from its stored document and seed and
//     compares move-for-move and sample-for-sample
//   - NaN round-trips as NULL (SQLite has no NaN); the comparison
//     treats a stored NULL and a replayed NaN as equal
//
// # Database Configuration
//
// Open applies WAL journaling (readers stay live while a run commits),
// synchronous=NORMAL, a 5-second busy timeout, and foreign key
// enforcement, then brings the schema up to the current version.
//
// Run fingerprints are computed in internal/model using canonical JSON
// and SHA-256 with domain separation.
package store
