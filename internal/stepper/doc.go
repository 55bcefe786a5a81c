// Package stepper implements the single-site stepping protocol: one
// gradient-informed accept/reject cycle for one latent node, or one cycle
// per coordinate for decomposition steppers.
//
// Every attempt follows the same bracket: propagate derivatives at the
// current point, save the deterministic closure, build the forward
// proposal, draw a candidate, re-evaluate and re-propagate at the
// candidate, build the reverse proposal, then accept or reject on
//
//	(new joint - old joint) + reverse.LogProb(old) - forward.LogProb(new)
//
// with ratios at or above zero accepted unconditionally. A rejected
// attempt restores the closure snapshot and the target value exactly.
// Derivative state is cleared on every exit path; the terminal state of a
// step carries no transient derivatives regardless of outcome.
//
// The Registry selects the first applicable stepper in priority order,
// dispatching on the target's storage kind: Simplex handles dirichlet
// targets through their gamma decomposition, Scalar handles the continuous
// scalar supports. Boolean targets have no stepper here; the engine
// rejects models that would need one.
package stepper
