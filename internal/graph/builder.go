package graph

import "github.com/minibayes/minibayes/internal/numeric"

// Builder constructs a graph one node at a time, checking each addition
// eagerly so errors surface at the offending call rather than at Build.
type Builder struct {
	nodes   []Node
	queries int
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Len returns the number of nodes added so far.
func (b *Builder) Len() int { return len(b.nodes) }

// AddConstant appends a constant leaf and returns its id. Cannot fail.
func (b *Builder) AddConstant(value float64) NodeID {
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{
		Seq:        id,
		Op:         OpConstant,
		Type:       TypeReal,
		Const:      value,
		QueryIndex: -1,
		Value:      numeric.Scalar(value),
	})
	return id
}

// AddOperator appends an operator node wired to the given parents.
//
// Fails with a StructuralError when the parent count does not match the
// operator's arity ("arity mismatch"), a parent id is out of range
// ("unknown reference"), or a parent's type disagrees with the operator's
// signature ("type mismatch"). Constants and queries have dedicated adders
// and are rejected here.
func (b *Builder) AddOperator(op Op, parents ...NodeID) (NodeID, error) {
	id := NodeID(len(b.nodes))
	if !op.Valid() || op == OpConstant || op == OpQuery {
		return 0, newStructuralError(ErrCodeUnknownOperator, id, "operator %s cannot be added here", op)
	}
	if err := checkSignature(b.nodes, id, op, parents); err != nil {
		return 0, err
	}

	n := Node{
		Seq:        id,
		Op:         op,
		Type:       op.Result(),
		Parents:    append([]NodeID(nil), parents...),
		QueryIndex: -1,
	}
	if op == OpSample {
		n.Storage = SampleStorage(b.nodes[parents[0]].Op)
	}
	b.nodes = append(b.nodes, n)
	return id, nil
}

// AddQuery appends a query over a value-carrying node and returns the
// assigned query index (consecutive from 0 in creation order).
func (b *Builder) AddQuery(parent NodeID) (int, error) {
	id := NodeID(len(b.nodes))
	if err := checkSignature(b.nodes, id, OpQuery, []NodeID{parent}); err != nil {
		return 0, err
	}

	index := b.queries
	b.queries++
	b.nodes = append(b.nodes, Node{
		Seq:        id,
		Op:         OpQuery,
		Type:       TypeNone,
		Parents:    []NodeID{parent},
		QueryIndex: index,
	})
	return index, nil
}

// Build validates the accumulated nodes and converts them into a Graph.
// The builder is drained: after Build it is empty and may be reused.
func (b *Builder) Build() (*Graph, error) {
	nodes := b.nodes
	b.nodes = nil
	b.queries = 0
	return FromNodes(nodes)
}

// checkSignature checks a prospective node's parent list against the
// operator's signature and rejects references to nodes that do not exist.
func checkSignature(nodes []Node, id NodeID, op Op, parents []NodeID) error {
	info := opTable[op]
	if info.arity == variadic {
		if len(parents) < info.minArity {
			return newStructuralError(ErrCodeArityMismatch, id,
				"arity mismatch: %s expects at least %d parents, got %d", op, info.minArity, len(parents))
		}
	} else if len(parents) != info.arity {
		return newStructuralError(ErrCodeArityMismatch, id,
			"arity mismatch: %s expects %d parents, got %d", op, info.arity, len(parents))
	}

	for i, p := range parents {
		if p < 0 || int(p) >= len(nodes) {
			return newStructuralError(ErrCodeUnknownReference, id,
				"unknown reference: parent %d refers to node %d", i, p)
		}
		want := TypeReal
		if info.arity != variadic {
			want = info.parents[i]
		}
		if got := nodes[p].Type; got != want {
			return newStructuralError(ErrCodeTypeMismatch, id,
				"type mismatch: parent %d of %s must be %s, got %s", i, op, want, got)
		}
	}

	switch op {
	case OpIndex:
		return checkIndexSelector(nodes, id, parents)
	case OpObserve:
		return checkObserveShape(nodes, id, parents)
	}
	return nil
}

// checkIndexSelector enforces the INDEX rules: the first parent must be a
// matrix-valued sample and the second a constant holding a non-negative
// integer within the sample's coefficient count. The matrix-valued check is
// structural (a sample of a dirichlet) so validation does not depend on
// runtime state.
func checkIndexSelector(nodes []Node, id NodeID, parents []NodeID) error {
	src := &nodes[parents[0]]
	if src.Op != OpSample || nodes[src.Parents[0]].Op != OpDistDirichlet {
		return newStructuralError(ErrCodeInvalidIndex, id,
			"INDEX parent 0 must be a matrix-valued sample, got %s node %d", src.Op, src.Seq)
	}
	sel := &nodes[parents[1]]
	if sel.Op != OpConstant {
		return newStructuralError(ErrCodeInvalidIndex, id,
			"INDEX parent 1 must be a constant, got %s node %d", sel.Op, sel.Seq)
	}
	k := sel.Const
	if k != float64(int(k)) || k < 0 {
		return newStructuralError(ErrCodeInvalidIndex, id,
			"INDEX selector must be a non-negative integer, got %v", k)
	}
	dim := len(nodes[src.Parents[0]].Parents)
	if int(k) >= dim {
		return newStructuralError(ErrCodeInvalidIndex, id,
			"INDEX selector %d out of range for dimension %d", int(k), dim)
	}
	return nil
}

// checkObserveShape enforces that an observation's value parent matches the
// shape its distribution assigns density to: a dirichlet observation needs a
// matrix-valued parent, every other distribution a scalar-valued one. Like
// the INDEX check, matrix-valuedness is decided structurally.
func checkObserveShape(nodes []Node, id NodeID, parents []NodeID) error {
	distOp := nodes[parents[0]].Op
	v := &nodes[parents[1]]
	matrixValued := v.Op == OpSample && nodes[v.Parents[0]].Op == OpDistDirichlet
	if distOp == OpDistDirichlet && !matrixValued {
		return newStructuralError(ErrCodeTypeMismatch, id,
			"type mismatch: observed value of %s must be matrix-valued, got %s node %d", distOp, v.Op, v.Seq)
	}
	if distOp != OpDistDirichlet && matrixValued {
		return newStructuralError(ErrCodeTypeMismatch, id,
			"type mismatch: observed value of %s must be scalar-valued, got matrix-valued node %d", distOp, v.Seq)
	}
	return nil
}
