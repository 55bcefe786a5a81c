// Package numeric provides DualValue, a tagged scalar-or-matrix container
// used for node values and derivative accumulators throughout the graph.
//
// A DualValue is either a scalar (float64) or a matrix (*mat.Dense), never
// both. Arithmetic between matching tags is type-preserving. Mixing tags is
// permitted only for scalar*matrix multiplication; cross-tag addition and
// subtraction are programming defects and panic with *TypeError, following
// the gonum/mat convention that shape misuse is fatal rather than silently
// recovered. Catch converts such a panic back into an error at boundaries.
//
// MatrixView projects a DualValue into its matrix-only surface (coefficient
// access, column extraction, sums) and routes all mutation back through the
// owning value so the tag invariant cannot be bypassed.
package numeric
