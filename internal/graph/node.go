package graph

import (
	"github.com/minibayes/minibayes/internal/numeric"
)

// NodeID is a node's arena index, equal to its creation order.
type NodeID int

// Node is one arena entry. All node kinds share this closed struct; the
// operator tag selects which fields are meaningful. Keeping the arena a
// flat slice of one concrete type makes snapshots cheap and keeps
// evaluation order a simple index walk.
//
// Structural fields (Seq, Op, Type, Parents, Const, QueryIndex, Storage)
// are immutable after construction. Sampling state (Value, Unconstrained,
// and the derivative accumulators) is mutable and owned by the stepping
// protocol; only value-carrying nodes use it.
type Node struct {
	// Seq is the sequence number, equal to the arena index.
	Seq NodeID

	// Op is the operator tag.
	Op Op

	// Type is the declared result type, always Op.Result() on a valid node.
	Type Type

	// Parents are arena indices of this node's inputs, in operator order.
	// Every parent index is strictly less than Seq.
	Parents []NodeID

	// Const is the payload of a CONSTANT node.
	Const float64

	// QueryIndex is the output-table slot of a QUERY node, -1 otherwise.
	QueryIndex int

	// Storage tags a SAMPLE node's value shape and support, StorageNone
	// on every other node.
	Storage StorageKind

	// Value is the current constrained value. Constants hold their payload,
	// deterministic operators their computed result, samples their current
	// draw (a column vector for simplex samples).
	Value numeric.DualValue

	// Unconstrained is the auxiliary decomposition value of a sample node
	// whose constrained support requires one (the positive gamma draws
	// behind a simplex). Scalar samples alias their value here.
	Unconstrained numeric.DualValue

	// Grad1 and Grad2 accumulate the first and second derivative of this
	// node's value with respect to the active differentiation target.
	Grad1, Grad2 float64

	// JGrad1 and JGrad2 are the per-coefficient counterparts used when the
	// active target is matrix-valued; scalar zero when inactive.
	JGrad1, JGrad2 numeric.DualValue
}

// IsConstant reports whether the node is a constant leaf.
func (n *Node) IsConstant() bool { return n.Op == OpConstant }

// IsSample reports whether the node is a stochastic sample.
func (n *Node) IsSample() bool { return n.Op == OpSample }

// IsObservation reports whether the node conditions on observed data.
func (n *Node) IsObservation() bool { return n.Op == OpObserve }

// IsQuery reports whether the node marks a posterior output.
func (n *Node) IsQuery() bool { return n.Op == OpQuery }

// DistOp returns the distribution operator governing a SAMPLE or OBSERVE
// node, resolved through the arena.
func (g *Graph) DistOp(id NodeID) Op {
	n := g.Node(id)
	return g.Node(n.Parents[0]).Op
}

// DistParams returns the current parameter values of a distribution node,
// read from its parents.
func (g *Graph) DistParams(distID NodeID) []float64 {
	d := g.Node(distID)
	params := make([]float64, len(d.Parents))
	for i, p := range d.Parents {
		params[i] = g.Node(p).Value.Float()
	}
	return params
}

// RefreshSimplexValue recomputes a simplex sample's constrained value from
// its unconstrained positive coordinates: value = x / sum(x). The
// unconstrained payload is left untouched.
func (n *Node) RefreshSimplexValue() {
	n.Value.Set(n.Unconstrained)
	numeric.View(&n.Value).Normalize()
}
