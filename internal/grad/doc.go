// Package grad implements the derivative bookkeeping around a proposal:
// saving and restoring deterministic node values, seeding a differentiation
// target, propagating first and second derivatives through the target's
// deterministic closure, and clearing all derivative state afterwards.
//
// CRITICAL: Clear must run on every exit path of a step attempt. Derivative
// accumulators left non-zero would silently corrupt the next target's
// propagation. The active-target marker on the graph makes that failure
// loud: seeding while another target is still marked returns an error
// instead of computing garbage.
//
// The deterministic closure passed to SeedAndPropagate must be exactly the
// affected set computed by the graph; a subset silently under-propagates.
// That precondition is not re-checked here because closures are computed
// once from the static structure and reused.
package grad
