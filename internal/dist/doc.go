// Package dist implements the distribution catalog behind DISTRIBUTION
// nodes: log-densities, sampling, support tags, and the first and second
// log-density derivatives the stepping protocol consumes.
//
// Scalar distributions (normal, gamma, beta, bernoulli) wrap
// gonum.org/v1/gonum/stat/distuv; the dirichlet wraps stat/distmv for
// sampling. All draws flow through a caller-supplied *rand.Rand from
// golang.org/x/exp/rand so one sequential generator drives a whole chain.
//
// Two derivative surfaces exist:
//   - ValueGradient (ScalarDistribution): score and curvature of the
//     log-density with respect to the value, used for a sampling target's
//     own prior term.
//   - ParamGradient: gradient and Hessian with respect to the parameters,
//     combined with each parameter node's propagated derivatives to fold
//     downstream log-probability terms into the target's derivatives.
//
// Invalid parameters (a non-positive scale, a probability outside the unit
// interval) make LogProb negative infinity and zero all derivatives, so a
// proposal that wanders into an invalid region is rejected by the usual
// accept test instead of crashing the chain.
package dist
