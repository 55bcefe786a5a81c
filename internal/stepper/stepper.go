package stepper

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/minibayes/minibayes/internal/dist"
	"github.com/minibayes/minibayes/internal/grad"
	"github.com/minibayes/minibayes/internal/graph"
	"github.com/minibayes/minibayes/internal/profile"
	"github.com/minibayes/minibayes/internal/proposer"
)

// Move records one accept/reject cycle over one coordinate.
type Move struct {
	// Node is the stepped sample node.
	Node graph.NodeID

	// Coordinate is the stepped coordinate, 0 for scalar targets.
	Coordinate int

	// Old and New are the coordinate values before and after the draw. For
	// simplex targets these are unconstrained gamma coordinates.
	Old, New float64

	// LogRatio is the acceptance log-ratio the decision was made on.
	LogRatio float64

	// Accepted reports whether the candidate replaced the old value.
	Accepted bool
}

// Stepper advances one latent node by one proposal cycle per coordinate.
type Stepper interface {
	// Applicable reports whether this stepper can advance the node,
	// decided on the storage kind tag.
	Applicable(n *graph.Node) bool

	// Step runs the accept/reject cycle for target. det and sto are the
	// target's precomputed affected sets in sequence order. On return the
	// target holds either the accepted or the original value and all
	// derivative state is cleared, whatever the outcome.
	Step(g *graph.Graph, target graph.NodeID, det, sto []graph.NodeID, rng *rand.Rand) ([]Move, error)
}

// Registry holds steppers in priority order and selects the first
// applicable one for each target.
type Registry struct {
	steppers []Stepper
}

// NewRegistry builds a registry with the given priority order. The slice
// is copied so later mutation by the caller cannot reorder dispatch.
func NewRegistry(steppers ...Stepper) *Registry {
	return &Registry{steppers: append([]Stepper(nil), steppers...)}
}

// Default returns the standard priority order: the simplex decomposition
// stepper first, then the scalar stepper.
func Default() *Registry {
	return NewRegistry(NewSimplex(nil), NewScalar(nil))
}

// For returns the first applicable stepper for n.
func (r *Registry) For(n *graph.Node) (Stepper, bool) {
	for _, s := range r.steppers {
		if s.Applicable(n) {
			return s, true
		}
	}
	return nil, false
}

// AcceptSample decides a move from its acceptance log-ratio: ratios at or
// above zero accept unconditionally, negative ratios accept with
// probability exp(ratio) against one uniform draw from the shared source.
// A NaN ratio (a candidate that evaluated into an undefined region)
// rejects.
func AcceptSample(rng *rand.Rand, logRatio float64) bool {
	if logRatio > 0 {
		return true
	}
	return math.Log(rng.Float64()) < logRatio
}

// supportOf maps a storage kind to the value support proposals live on.
func supportOf(k graph.StorageKind) dist.Support {
	switch k {
	case graph.StorageScalarReal:
		return dist.SupportReal
	case graph.StorageScalarPositive:
		return dist.SupportPositive
	case graph.StorageScalarUnit:
		return dist.SupportUnit
	case graph.StorageScalarBool:
		return dist.SupportBoolean
	default:
		return dist.SupportSimplex
	}
}

// propagateGradients runs derivative propagation through the deterministic
// closure under the gradient profiling bracket.
func propagateGradients(sink profile.Sink, g *graph.Graph, target graph.NodeID, det []graph.NodeID) error {
	sink.Begin(profile.EventGradients)
	defer sink.End(profile.EventGradients)
	return grad.SeedAndPropagate(g, target, det)
}

// buildProposal folds the dependent stochastic set into the joint
// log-probability and its derivatives at value, then builds the Newton
// proposal over the given support.
func buildProposal(
	sink profile.Sink,
	g *graph.Graph,
	target graph.NodeID,
	sto []graph.NodeID,
	targetTerm func() (float64, float64, float64),
	support dist.Support,
	value float64,
) (proposer.Proposer, float64, error) {
	sink.Begin(profile.EventProposer)
	defer sink.End(profile.EventProposer)

	lp, g1, g2, err := jointAndGrads(g, target, sto, targetTerm)
	if err != nil {
		return nil, 0, err
	}
	p, err := proposer.NMC(support, value, g1, g2)
	if err != nil {
		return nil, 0, err
	}
	return p, lp, nil
}

// evalNodes re-evaluates the deterministic closure in sequence order.
func evalNodes(g *graph.Graph, det []graph.NodeID) error {
	for _, id := range det {
		if err := g.EvalNode(id); err != nil {
			return err
		}
	}
	return nil
}
