// Package proposer builds the local second-order proposal distribution for
// one accept/reject cycle. Given a value and the first and second
// derivatives of the joint log-density at that value, NMC treats the
// log-density as locally quadratic and matches a distribution on the
// target's support: a normal on the real line, a gamma on the positive
// half-line, a beta on the unit interval.
//
// When the local curvature cannot support the closed form (non-negative
// second derivative on the real line, non-positive shape or rate on the
// constrained supports) the proposal falls back to a conservative
// distribution centered at the current value. The fallback is
// deterministic: the same inputs always produce the same proposer. A
// DegeneracyError is reserved for inputs no policy can serve: non-finite
// derivatives or a value outside the declared support.
//
// A Proposer lives for one proposal attempt. Sample draws the candidate
// through the shared random source; LogProb evaluates the proposal density
// at an arbitrary point for the reverse-move term of the acceptance ratio.
package proposer
