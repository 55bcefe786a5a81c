package graph

// Affected computes the two node sets a proposal at target touches:
//
//   - det: the deterministic closure, every deterministic operator node
//     whose value can change when the target's value changes, reachable
//     from the target through deterministic and distribution nodes only.
//   - sto: the dependent stochastic set, the target itself plus every
//     SAMPLE and OBSERVE node whose log-probability term depends on the
//     target, directly or through the deterministic closure.
//
// Both sets are returned in sequence order, which is a valid evaluation
// order for det. Traversal stops at stochastic nodes: a sample severs
// derivative flow, so nodes beyond it belong to that sample's own closure.
// Queries carry no value and appear in neither set.
//
// The graph is static, so callers precompute these sets once per target.
func (g *Graph) Affected(target NodeID) (det, sto []NodeID) {
	inDet := make(map[NodeID]bool)
	inSto := make(map[NodeID]bool)
	inSto[target] = true

	var visit func(NodeID)
	visit = func(id NodeID) {
		for _, c := range g.children[id] {
			n := &g.nodes[c]
			switch {
			case n.Op.IsStochastic():
				if !inSto[c] {
					inSto[c] = true
				}
			case n.Op.IsDeterministic():
				if !inDet[c] {
					inDet[c] = true
					visit(c)
				}
			case n.Op.IsDistribution():
				// Parameter bundles carry no value of their own; pass
				// through to the samples and observations they govern.
				visit(c)
			}
		}
	}
	visit(target)

	for i := range g.nodes {
		id := NodeID(i)
		if inDet[id] {
			det = append(det, id)
		}
		if inSto[id] {
			sto = append(sto, id)
		}
	}
	return det, sto
}
