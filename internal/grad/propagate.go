package grad

import (
	"fmt"

	"github.com/minibayes/minibayes/internal/graph"
	"github.com/minibayes/minibayes/internal/numeric"
)

// SeedAndPropagate marks target as the active differentiation target, seeds
// its derivative accumulators, and propagates first and second derivatives
// through det, which must be the target's deterministic closure in sequence
// order with values already evaluated at the current point.
//
// Scalar targets are seeded with Grad1 = 1, Grad2 = 0. Simplex targets are
// expected to carry their per-coefficient Jacobian in JGrad1/JGrad2 already,
// loaded by the stepper for the coordinate being proposed.
//
// Fails if another target is still marked active, which means a previous
// step attempt skipped Clear.
func SeedAndPropagate(g *graph.Graph, target graph.NodeID, det []graph.NodeID) error {
	if prev, ok := g.ActiveTarget(); ok && prev != target {
		return fmt.Errorf("derivative state for node %d still active while seeding node %d", prev, target)
	}
	g.SetActiveTarget(target)

	tn := g.Node(target)
	if tn.Storage != graph.StorageSimplex {
		tn.Grad1 = 1
		tn.Grad2 = 0
	}

	for _, id := range det {
		propagateNode(g, g.Node(id))
	}
	return nil
}

// propagateNode combines the parents' accumulated derivatives through the
// operator's chain rule. Values are read as already evaluated.
func propagateNode(g *graph.Graph, n *graph.Node) {
	switch n.Op {
	case graph.OpAdd:
		u := g.Node(n.Parents[0])
		v := g.Node(n.Parents[1])
		n.Grad1 = u.Grad1 + v.Grad1
		n.Grad2 = u.Grad2 + v.Grad2
	case graph.OpSubtract:
		u := g.Node(n.Parents[0])
		v := g.Node(n.Parents[1])
		n.Grad1 = u.Grad1 - v.Grad1
		n.Grad2 = u.Grad2 - v.Grad2
	case graph.OpNegate:
		u := g.Node(n.Parents[0])
		n.Grad1 = -u.Grad1
		n.Grad2 = -u.Grad2
	case graph.OpMultiply:
		u := g.Node(n.Parents[0])
		v := g.Node(n.Parents[1])
		uv, vv := u.Value.Float(), v.Value.Float()
		n.Grad1 = u.Grad1*vv + uv*v.Grad1
		n.Grad2 = u.Grad2*vv + 2*u.Grad1*v.Grad1 + uv*v.Grad2
	case graph.OpExp:
		u := g.Node(n.Parents[0])
		w := n.Value.Float()
		n.Grad1 = w * u.Grad1
		n.Grad2 = w * (u.Grad2 + u.Grad1*u.Grad1)
	case graph.OpLog:
		u := g.Node(n.Parents[0])
		uv := u.Value.Float()
		n.Grad1 = u.Grad1 / uv
		n.Grad2 = u.Grad2/uv - u.Grad1*u.Grad1/(uv*uv)
	case graph.OpLogistic:
		u := g.Node(n.Parents[0])
		s := n.Value.Float()
		d := s * (1 - s)
		n.Grad1 = d * u.Grad1
		n.Grad2 = d * (u.Grad2 + (1-2*s)*u.Grad1*u.Grad1)
	case graph.OpIndex:
		src := g.Node(n.Parents[0])
		k := int(g.Node(n.Parents[1]).Value.Float())
		n.Grad1 = jcoeff(&src.JGrad1, k)
		n.Grad2 = jcoeff(&src.JGrad2, k)
	}
}

// jcoeff reads coefficient k of a per-coefficient accumulator, treating the
// cleared (scalar zero) state as an all-zero matrix.
func jcoeff(j *numeric.DualValue, k int) float64 {
	if !j.IsMatrix() {
		return 0
	}
	return numeric.View(j).AtVec(k)
}

// Clear zeroes the derivative accumulators of the target and its closure
// and removes the active-target marker. It must be called at the end of
// every step attempt, accepted or rejected; stale accumulators are a
// correctness bug, not an optimization concern.
func Clear(g *graph.Graph, target graph.NodeID, det []graph.NodeID) {
	clearNode(g.Node(target))
	for _, id := range det {
		clearNode(g.Node(id))
	}
	g.ClearActiveTarget()
}

func clearNode(n *graph.Node) {
	n.Grad1 = 0
	n.Grad2 = 0
	n.JGrad1 = numeric.DualValue{}
	n.JGrad2 = numeric.DualValue{}
}
