// Package graph defines the probabilistic graph model: a dense arena of
// typed nodes (constants, deterministic operators, distributions, samples,
// observations, queries) indexed by creation order.
//
// A Graph is immutable once built except for the mutable sampling state
// inside stochastic nodes (value, unconstrained value, derivative
// accumulators), which only the stepping protocol touches. All structural
// rules are enforced at construction and by Validate; nothing is re-checked
// per step.
//
// ARCHITECTURE:
//   - Op/Type/StorageKind: closed enums with fixed per-operator signatures
//     held in an immutable table (opTable).
//   - Builder: incremental construction with eager structural checks.
//   - FromNodes: ingest contract for external front ends; runs the full
//     validation pass before accepting the arena.
//   - Eval: deterministic value computation in creation order.
//   - Affected: deterministic closure and dependent stochastic set for a
//     sampling target, precomputable because the structure never changes.
//
// INVARIANTS:
//   - Node sequence numbers are consecutive from 0 and equal slice indices.
//   - Every parent reference points to an earlier node.
//   - A node's declared type always equals its operator's result type.
//   - Query indices are consecutive from 0 in creation order.
//   - Re-validating a valid arena succeeds and changes nothing.
package graph
