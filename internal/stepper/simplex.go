package stepper

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/minibayes/minibayes/internal/dist"
	"github.com/minibayes/minibayes/internal/grad"
	"github.com/minibayes/minibayes/internal/graph"
	"github.com/minibayes/minibayes/internal/numeric"
	"github.com/minibayes/minibayes/internal/profile"
	"github.com/minibayes/minibayes/internal/proposer"
)

// Simplex is the single-site stepper for dirichlet samples. A K-dimensional
// dirichlet draw Y is carried as K unconstrained gamma coordinates X with
// Y = X/sum(X), where X_k ~ Gamma(alpha_k, 1). Each Step runs one
// accept/reject cycle per coordinate, proposing on the positive half-line
// and re-deriving the constrained simplex after every write.
type Simplex struct {
	profile profile.Sink
}

// NewSimplex returns a simplex stepper reporting to sink. A nil sink
// disables profiling.
func NewSimplex(sink profile.Sink) *Simplex {
	if sink == nil {
		sink = profile.Nop{}
	}
	return &Simplex{profile: sink}
}

// Applicable implements Stepper: simplex storage only.
func (s *Simplex) Applicable(n *graph.Node) bool {
	return n.Storage == graph.StorageSimplex
}

// Step implements Stepper, cycling over the K unconstrained coordinates in
// order. The dirichlet concentrations are upstream of the target and fixed
// for the whole cycle.
func (s *Simplex) Step(g *graph.Graph, target graph.NodeID, det, sto []graph.NodeID, rng *rand.Rand) ([]Move, error) {
	s.profile.Begin(profile.EventSimplexStep)
	defer s.profile.End(profile.EventSimplexStep)

	tn := g.Node(target)
	alphas := g.DistParams(tn.Parents[0])

	moves := make([]Move, 0, len(alphas))
	for k, alpha := range alphas {
		move, err := s.stepCoordinate(g, tn, det, sto, rng, alpha, k)
		if err != nil {
			return moves, err
		}
		moves = append(moves, move)
	}
	return moves, nil
}

// stepCoordinate runs the accept/reject cycle for unconstrained coordinate
// k. The coordinate's own prior term is the closed-form Gamma(alpha, 1)
// log-density of the decomposition; downstream consumers see the target
// through INDEX reads, whose derivatives flow from the jacobian loaded
// before each propagation.
func (s *Simplex) stepCoordinate(
	g *graph.Graph,
	tn *graph.Node,
	det, sto []graph.NodeID,
	rng *rand.Rand,
	alpha float64,
	k int,
) (Move, error) {
	target := tn.Seq
	x := numeric.View(&tn.Unconstrained)
	oldX := x.AtVec(k)

	prior := dist.Gamma{Alpha: alpha, Rate: 1}
	targetTerm := func() (float64, float64, float64) {
		v := x.AtVec(k)
		lp := prior.LogProb(numeric.Scalar(v))
		g1, g2 := prior.ValueGradient(v)
		return lp, g1, g2
	}

	snap := grad.Save(g, det)
	loadJacobian(tn, k)
	if err := propagateGradients(s.profile, g, target, det); err != nil {
		return Move{}, err
	}
	defer grad.Clear(g, target, det)

	forward, oldLP, err := buildProposal(s.profile, g, target, sto, targetTerm, dist.SupportPositive, oldX)
	if err != nil {
		return Move{}, fmt.Errorf("node %d coordinate %d at value %g: %w", target, k, oldX, err)
	}

	newX := forward.Sample(rng)
	x.SetAtVec(k, newX)
	tn.RefreshSimplexValue()
	loadJacobian(tn, k)
	if err := evalNodes(g, det); err != nil {
		snap.Restore(g)
		s.revert(tn, x, k, oldX)
		return Move{}, err
	}
	if err := propagateGradients(s.profile, g, target, det); err != nil {
		return Move{}, err
	}

	move := Move{Node: target, Coordinate: k, Old: oldX, New: newX}
	reverse, newLP, err := buildProposal(s.profile, g, target, sto, targetTerm, dist.SupportPositive, newX)
	if err != nil {
		if !proposer.IsDegeneracy(err) {
			return Move{}, err
		}
		// No reverse proposal exists at the candidate, so the reverse move
		// has probability zero and the candidate is rejected outright.
		snap.Restore(g)
		s.revert(tn, x, k, oldX)
		move.LogRatio = math.Inf(-1)
		return move, nil
	}

	move.LogRatio = newLP - oldLP + reverse.LogProb(oldX) - forward.LogProb(newX)
	move.Accepted = AcceptSample(rng, move.LogRatio)
	if !move.Accepted {
		snap.Restore(g)
		s.revert(tn, x, k, oldX)
	}
	return move, nil
}

// revert writes the old unconstrained coordinate back and re-derives the
// constrained simplex. The stale jacobian is left for Clear.
func (s *Simplex) revert(tn *graph.Node, x numeric.MatrixView, k int, oldX float64) {
	x.SetAtVec(k, oldX)
	tn.RefreshSimplexValue()
}

// loadJacobian fills the target's per-coefficient accumulators with the
// derivatives of the constrained simplex with respect to unconstrained
// coordinate k:
//
//	dY_j/dX_k    = -X_j/sum^2, plus 1/sum when j == k
//	d2Y_j/dX_k^2 = dY_j/dX_k * (-2/sum)
func loadJacobian(n *graph.Node, k int) {
	x := numeric.View(&n.Unconstrained)
	sum := x.Sum()
	dim := x.Len()

	n.JGrad1.SetZero(dim, 1)
	n.JGrad2.SetZero(dim, 1)
	j1 := numeric.View(&n.JGrad1)
	j2 := numeric.View(&n.JGrad2)
	for j := 0; j < dim; j++ {
		d := -x.AtVec(j) / (sum * sum)
		if j == k {
			d += 1 / sum
		}
		j1.SetAtVec(j, d)
		j2.SetAtVec(j, d*(-2)/sum)
	}
}
