package graph

import "github.com/minibayes/minibayes/internal/numeric"

// Graph is a validated node arena plus the navigation indexes derived from
// it. The structure is immutable after FromNodes; only sampling state inside
// nodes changes, and only through the stepping protocol.
type Graph struct {
	nodes    []Node
	children [][]NodeID

	queries  []NodeID // query nodes in query-index order
	samples  []NodeID // SAMPLE nodes in sequence order
	observes []NodeID // OBSERVE nodes in sequence order

	// activeTarget names the node currently being differentiated against,
	// -1 when derivative state is clear. Set and cleared by the gradient
	// propagation protocol.
	activeTarget NodeID
}

// Validate runs the full structural pass over a node list:
// consecutive sequence numbers, known operators, declared types matching
// operator result types, arity and parent-type signatures, backward-only
// parent references, consecutive query indices, and INDEX selector rules.
//
// Validation never mutates the nodes; re-validating an already valid list
// returns nil.
func Validate(nodes []Node) error {
	queries := 0
	for i := range nodes {
		n := &nodes[i]
		id := NodeID(i)
		if n.Seq != id {
			return newStructuralError(ErrCodeSequence, id,
				"sequence number %d at position %d", n.Seq, i)
		}
		if !n.Op.Valid() {
			return newStructuralError(ErrCodeUnknownOperator, id,
				"unknown operator tag %d", int(n.Op))
		}
		if n.Type != n.Op.Result() {
			return newStructuralError(ErrCodeTypeMismatch, id,
				"type mismatch: %s produces %s, declared %s", n.Op, n.Op.Result(), n.Type)
		}
		if err := checkSignature(nodes[:i], id, n.Op, n.Parents); err != nil {
			return err
		}
		if n.Op == OpQuery {
			if n.QueryIndex != queries {
				return newStructuralError(ErrCodeQueryIndex, id,
					"query index %d out of order, expected %d", n.QueryIndex, queries)
			}
			queries++
		}
	}
	return nil
}

// FromNodes validates an externally built node list and assembles the
// Graph, taking ownership of the slice. This is the ingest contract for
// front ends: any arena accepted here behaves identically to one built
// through the Builder.
func FromNodes(nodes []Node) (*Graph, error) {
	if err := Validate(nodes); err != nil {
		return nil, err
	}

	g := &Graph{
		nodes:        nodes,
		children:     make([][]NodeID, len(nodes)),
		activeTarget: -1,
	}
	for i := range nodes {
		n := &g.nodes[i]
		switch n.Op {
		case OpConstant:
			n.Value = numeric.Scalar(n.Const)
			n.QueryIndex = -1
		case OpQuery:
			g.queries = append(g.queries, n.Seq)
		case OpSample:
			n.Storage = SampleStorage(g.nodes[n.Parents[0]].Op)
			n.QueryIndex = -1
			g.samples = append(g.samples, n.Seq)
		case OpObserve:
			n.QueryIndex = -1
			g.observes = append(g.observes, n.Seq)
		default:
			n.QueryIndex = -1
		}
		for _, p := range n.Parents {
			g.children[p] = append(g.children[p], n.Seq)
		}
	}
	return g, nil
}

// Len returns the node count.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the arena entry for id. The pointer addresses the live
// arena; mutating sampling state through it is how steppers work.
func (g *Graph) Node(id NodeID) *Node { return &g.nodes[id] }

// Children returns the nodes that list id as a parent, in sequence order.
func (g *Graph) Children(id NodeID) []NodeID { return g.children[id] }

// Queries returns the query nodes in query-index order.
func (g *Graph) Queries() []NodeID { return g.queries }

// Samples returns all SAMPLE nodes in sequence order. Every sample is a
// latent variable; observed data enters through OBSERVE nodes.
func (g *Graph) Samples() []NodeID { return g.samples }

// Observations returns all OBSERVE nodes in sequence order.
func (g *Graph) Observations() []NodeID { return g.observes }

// SimplexDim returns the coefficient count of a simplex sample node,
// which equals the parameter count of its dirichlet parent.
func (g *Graph) SimplexDim(id NodeID) int {
	return len(g.Node(g.Node(id).Parents[0]).Parents)
}

// ActiveTarget returns the node currently marked as the differentiation
// target, if any.
func (g *Graph) ActiveTarget() (NodeID, bool) {
	if g.activeTarget < 0 {
		return 0, false
	}
	return g.activeTarget, true
}

// SetActiveTarget marks id as the differentiation target. Only the
// gradient propagation protocol calls this.
func (g *Graph) SetActiveTarget(id NodeID) { g.activeTarget = id }

// ClearActiveTarget removes the differentiation target marker.
func (g *Graph) ClearActiveTarget() { g.activeTarget = -1 }
