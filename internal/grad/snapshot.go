package grad

import (
	"github.com/minibayes/minibayes/internal/graph"
	"github.com/minibayes/minibayes/internal/numeric"
)

// Snapshot is a deep copy of the values of a node subset, taken before a
// proposal mutates them and restored when the proposal is rejected.
type Snapshot struct {
	ids    []graph.NodeID
	values []numeric.DualValue
}

// Save deep-copies the current values of ids.
func Save(g *graph.Graph, ids []graph.NodeID) *Snapshot {
	s := &Snapshot{
		ids:    ids,
		values: make([]numeric.DualValue, len(ids)),
	}
	for i, id := range ids {
		s.values[i] = g.Node(id).Value.Clone()
	}
	return s
}

// Restore writes the saved values back, reproducing them exactly. The
// restored payloads are re-cloned so one snapshot can restore repeatedly.
func (s *Snapshot) Restore(g *graph.Graph) {
	for i, id := range s.ids {
		g.Node(id).Value = s.values[i].Clone()
	}
}
