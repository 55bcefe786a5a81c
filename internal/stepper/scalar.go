package stepper

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/minibayes/minibayes/internal/grad"
	"github.com/minibayes/minibayes/internal/graph"
	"github.com/minibayes/minibayes/internal/profile"
	"github.com/minibayes/minibayes/internal/proposer"
)

// Scalar is the single-site stepper for continuous scalar samples. One call
// to Step is one Metropolis-Hastings attempt on the whole value.
type Scalar struct {
	profile profile.Sink
}

// NewScalar returns a scalar stepper reporting to sink. A nil sink disables
// profiling.
func NewScalar(sink profile.Sink) *Scalar {
	if sink == nil {
		sink = profile.Nop{}
	}
	return &Scalar{profile: sink}
}

// Applicable implements Stepper: continuous scalar storage only. Boolean
// samples are discrete and have no gradient to inform a proposal.
func (s *Scalar) Applicable(n *graph.Node) bool {
	switch n.Storage {
	case graph.StorageScalarReal, graph.StorageScalarPositive, graph.StorageScalarUnit:
		return true
	default:
		return false
	}
}

// Step implements Stepper. The attempt runs the full bracket: derivatives at
// the current value, forward proposal, candidate draw, re-evaluation and
// derivatives at the candidate, reverse proposal, then the acceptance test.
// A rejected candidate restores the saved deterministic closure and the old
// value exactly. Derivative state is cleared on every exit path once seeded.
func (s *Scalar) Step(g *graph.Graph, target graph.NodeID, det, sto []graph.NodeID, rng *rand.Rand) ([]Move, error) {
	s.profile.Begin(profile.EventStep)
	defer s.profile.End(profile.EventStep)

	tn := g.Node(target)
	oldValue := tn.Value.Float()
	support := supportOf(tn.Storage)

	targetTerm, err := scalarTargetTerm(g, target)
	if err != nil {
		return nil, err
	}

	snap := grad.Save(g, det)
	if err := propagateGradients(s.profile, g, target, det); err != nil {
		return nil, err
	}
	defer grad.Clear(g, target, det)

	forward, oldLP, err := buildProposal(s.profile, g, target, sto, targetTerm, support, oldValue)
	if err != nil {
		return nil, fmt.Errorf("node %d at value %g: %w", target, oldValue, err)
	}

	newValue := forward.Sample(rng)
	setScalar(tn, newValue)
	if err := evalNodes(g, det); err != nil {
		snap.Restore(g)
		setScalar(tn, oldValue)
		return nil, err
	}
	if err := propagateGradients(s.profile, g, target, det); err != nil {
		return nil, err
	}

	move := Move{Node: target, Coordinate: 0, Old: oldValue, New: newValue}
	reverse, newLP, err := buildProposal(s.profile, g, target, sto, targetTerm, support, newValue)
	if err != nil {
		if !proposer.IsDegeneracy(err) {
			return nil, err
		}
		// No reverse proposal exists at the candidate, so the reverse move
		// has probability zero and the candidate is rejected outright.
		snap.Restore(g)
		setScalar(tn, oldValue)
		move.LogRatio = math.Inf(-1)
		return []Move{move}, nil
	}

	move.LogRatio = newLP - oldLP + reverse.LogProb(oldValue) - forward.LogProb(newValue)
	move.Accepted = AcceptSample(rng, move.LogRatio)
	if !move.Accepted {
		snap.Restore(g)
		setScalar(tn, oldValue)
	}
	return []Move{move}, nil
}

// setScalar writes a scalar sample's value, keeping the unconstrained alias
// in sync.
func setScalar(n *graph.Node, v float64) {
	n.Value.SetFloat(v)
	n.Unconstrained.SetFloat(v)
}
