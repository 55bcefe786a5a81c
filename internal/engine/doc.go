// Package engine orchestrates single-site inference over a validated
// graph.
//
// The engine is the conductor: it owns the shared random source, the
// per-latent stepping plan, and the iteration loop. The accept/reject
// mechanics themselves live in the stepper registry.
//
// ARCHITECTURE:
//
// Single-threaded chain:
// All sampling state lives in the graph arena, and every mutation happens
// on the goroutine that called Infer. This ensures:
// - One random source consumed in a fixed order
// - Bit-for-bit reproducible runs from a seed
// - No locking on the stepping path
//
// Inference flow:
// 1. New resolves a stepper for every latent node and precomputes each
//    latent's affected sets (the graph is static, so this happens once)
// 2. Infer initializes the chain: priors drawn in sequence order,
//    deterministic nodes evaluated in the same pass
// 3. Per iteration, every latent steps in sequence order; each move
//    streams to the observer; the query row lands in the samples matrix
//
// CRITICAL PATTERNS:
//
// Fixed draw order:
// Every random draw flows through the one engine source, in a fixed order
// (initialization, then per iteration, per latent, per coordinate).
// Reordering draws silently breaks replay verification. NEVER give a
// stepper its own source.
//
// Cancellation between steps:
// Context cancellation is observed between step attempts, never inside
// one. A step runs its full protocol or not at all, so the graph is
// always in a consistent state when Infer returns.
package engine
