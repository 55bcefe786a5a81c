package graph

import (
	"math"

	"github.com/minibayes/minibayes/internal/numeric"
)

// EvalNode recomputes the value of a deterministic operator node from its
// parents' current values. Non-deterministic nodes (constants, samples,
// distributions, observations, queries) are left untouched.
//
// Scalar operators require scalar payloads on their parents; feeding a
// matrix-valued node into one panics with a numeric type error. INDEX is
// the only operator consuming a matrix payload; its selector is re-checked
// dynamically against the live matrix shape.
func (g *Graph) EvalNode(id NodeID) error {
	n := g.Node(id)
	switch n.Op {
	case OpAdd:
		n.Value.SetFloat(g.pval(n, 0) + g.pval(n, 1))
	case OpSubtract:
		n.Value.SetFloat(g.pval(n, 0) - g.pval(n, 1))
	case OpNegate:
		n.Value.SetFloat(-g.pval(n, 0))
	case OpMultiply:
		n.Value.SetFloat(g.pval(n, 0) * g.pval(n, 1))
	case OpExp:
		n.Value.SetFloat(math.Exp(g.pval(n, 0)))
	case OpLog:
		n.Value.SetFloat(math.Log(g.pval(n, 0)))
	case OpLogistic:
		n.Value.SetFloat(logistic(g.pval(n, 0)))
	case OpIndex:
		v, err := g.indexCoeff(n)
		if err != nil {
			return err
		}
		n.Value.SetFloat(v)
	}
	return nil
}

// EvalAll recomputes every deterministic node in creation order, which is
// a topological order by construction.
func (g *Graph) EvalAll() error {
	for i := range g.nodes {
		if !g.nodes[i].Op.IsDeterministic() {
			continue
		}
		if err := g.EvalNode(NodeID(i)); err != nil {
			return err
		}
	}
	return nil
}

// pval reads parent i's scalar value.
func (g *Graph) pval(n *Node, i int) float64 {
	return g.Node(n.Parents[i]).Value.Float()
}

// indexCoeff extracts the selected coefficient of an INDEX node's matrix
// parent, re-checking the selector against the live shape.
func (g *Graph) indexCoeff(n *Node) (float64, error) {
	src := g.Node(n.Parents[0])
	k := int(g.Node(n.Parents[1]).Value.Float())
	view := numeric.View(&src.Value)
	if !view.HasMatrix() {
		return 0, newStructuralError(ErrCodeInvalidIndex, n.Seq,
			"INDEX parent %d holds no matrix value", src.Seq)
	}
	if k < 0 || k >= view.Len() {
		return 0, newStructuralError(ErrCodeInvalidIndex, n.Seq,
			"INDEX selector %d out of range for %d coefficients", k, view.Len())
	}
	return view.AtVec(k), nil
}

// logistic is the standard sigmoid.
func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
