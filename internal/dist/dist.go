package dist

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/minibayes/minibayes/internal/graph"
	"github.com/minibayes/minibayes/internal/numeric"
)

// Support describes the set of values a distribution assigns density to.
type Support int

const (
	// SupportReal is the whole real line.
	SupportReal Support = iota

	// SupportPositive is the open positive half-line.
	SupportPositive

	// SupportUnit is the open unit interval.
	SupportUnit

	// SupportBoolean is the two-point set {0, 1}.
	SupportBoolean

	// SupportSimplex is the set of positive vectors summing to 1.
	SupportSimplex
)

// String returns the support name for logs and errors.
func (s Support) String() string {
	switch s {
	case SupportReal:
		return "real"
	case SupportPositive:
		return "positive"
	case SupportUnit:
		return "unit"
	case SupportBoolean:
		return "boolean"
	case SupportSimplex:
		return "simplex"
	default:
		return "unknown"
	}
}

// ParamGrad carries the log-density derivatives with respect to a
// distribution's parameters at a fixed value: D1[i] is the gradient and
// D2[i][j] the symmetric Hessian, indexed in parameter (parent) order.
type ParamGrad struct {
	D1 []float64
	D2 [][]float64
}

// Distribution is the contract every distribution operator satisfies.
type Distribution interface {
	// Support reports the value set.
	Support() Support

	// NumParams returns the parameter count, matching the distribution
	// node's parent count.
	NumParams() int

	// Valid reports whether the current parameters define a proper
	// density. Sample must not be called on an invalid distribution;
	// LogProb and the gradient methods degrade instead of panicking.
	Valid() bool

	// LogProb evaluates the log-density at v. Out-of-support values and
	// invalid parameters yield negative infinity.
	LogProb(v numeric.DualValue) float64

	// Sample draws one value through the shared random source.
	Sample(rng *rand.Rand) numeric.DualValue

	// ParamGradient evaluates the log-density derivatives with respect to
	// the parameters at v. Invalid parameters yield all zeros.
	ParamGradient(v numeric.DualValue) ParamGrad
}

// ScalarDistribution extends Distribution with value derivatives, defined
// only for continuous scalar supports. Steppers assert this interface for
// the target's own prior term.
type ScalarDistribution interface {
	Distribution

	// ValueGradient returns the first and second derivative of the
	// log-density with respect to the value.
	ValueGradient(value float64) (g1, g2 float64)
}

// ForNode materializes the distribution of a DISTRIBUTION node from its
// parents' current values. The returned object captures the parameter
// values at call time; re-materialize after any parameter node changes.
func ForNode(g *graph.Graph, distID graph.NodeID) (Distribution, error) {
	n := g.Node(distID)
	params := g.DistParams(distID)
	switch n.Op {
	case graph.OpDistNormal:
		return Normal{Mu: params[0], Sigma: params[1]}, nil
	case graph.OpDistBeta:
		return Beta{Alpha: params[0], Beta: params[1]}, nil
	case graph.OpDistGamma:
		return Gamma{Alpha: params[0], Rate: params[1]}, nil
	case graph.OpDistBernoulli:
		return Bernoulli{P: params[0]}, nil
	case graph.OpDistDirichlet:
		return Dirichlet{Alpha: params}, nil
	default:
		return nil, fmt.Errorf("node %d: %s is not a distribution operator", distID, n.Op)
	}
}

// zeroGrad returns an all-zero ParamGrad of size n.
func zeroGrad(n int) ParamGrad {
	pg := ParamGrad{D1: make([]float64, n), D2: make([][]float64, n)}
	for i := range pg.D2 {
		pg.D2[i] = make([]float64, n)
	}
	return pg
}
