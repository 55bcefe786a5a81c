// Package model reads and writes the JSON document form of a graph and
// derives content-addressed run fingerprints from it. Decoding runs in
// three stages: the embedded cue schema checks shape, the node mapper
// checks names and payloads, and graph construction checks structure.
// Each stage reports everything it finds before the next one runs.
package model

import (
	"encoding/json"
	"fmt"

	"github.com/minibayes/minibayes/internal/graph"
)

// Document is the interchange form of a graph: a flat node list in
// sequence order plus a free-text comment.
type Document struct {
	Comment string     `json:"comment,omitempty"`
	Nodes   []NodeSpec `json:"nodes"`
}

// NodeSpec is one node entry. Payload fields are pointers so that a
// present zero survives the round trip; which payloads apply depends on
// the operator.
type NodeSpec struct {
	Sequence   int      `json:"sequence"`
	Operator   string   `json:"operator"`
	Type       string   `json:"type,omitempty"`
	Value      *float64 `json:"value,omitempty"`
	InNodes    []int    `json:"in_nodes,omitempty"`
	InNode     *int     `json:"in_node,omitempty"`
	QueryIndex *int     `json:"query_index,omitempty"`
}

// Decode parses document JSON into a validated graph. Shape and mapping
// problems come back as a DecodeError carrying the full list; structural
// problems surface as graph errors.
func Decode(data []byte) (*graph.Graph, error) {
	if errs := ValidateBytes(data); len(errs) > 0 {
		return nil, &DecodeError{Errors: errs}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("model: unmarshal document: %w", err)
	}
	return doc.Graph()
}

// Graph converts the document into a validated graph.
func (d *Document) Graph() (*graph.Graph, error) {
	nodes := make([]graph.Node, 0, len(d.Nodes))
	var errs []DocumentError
	for i := range d.Nodes {
		n, specErrs := d.Nodes[i].node(i)
		if len(specErrs) > 0 {
			errs = append(errs, specErrs...)
			continue
		}
		nodes = append(nodes, n)
	}
	if len(errs) > 0 {
		return nil, &DecodeError{Errors: errs}
	}
	return graph.FromNodes(nodes)
}

// node maps one spec to an arena entry, collecting every mapping
// problem it can find.
func (s *NodeSpec) node(i int) (graph.Node, []DocumentError) {
	var errs []DocumentError
	field := func(name string) string { return fmt.Sprintf("nodes[%d].%s", i, name) }

	// E101: operator must name a catalog entry
	op, ok := graph.OpFromName(s.Operator)
	if !ok {
		errs = append(errs, DocumentError{
			Field:   field("operator"),
			Message: fmt.Sprintf("unknown operator %q", s.Operator),
			Code:    ErrUnknownOperatorName,
		})
		return graph.Node{}, errs
	}

	// An omitted type defaults to the operator's result type.
	typ := op.Result()
	if s.Type != "" {
		// E102: a declared type must name a catalog entry
		t, known := graph.TypeFromName(s.Type)
		if !known {
			errs = append(errs, DocumentError{
				Field:   field("type"),
				Message: fmt.Sprintf("unknown type %q", s.Type),
				Code:    ErrUnknownTypeName,
			})
		} else {
			typ = t
		}
	}

	n := graph.Node{
		Seq:        graph.NodeID(s.Sequence),
		Op:         op,
		Type:       typ,
		QueryIndex: -1,
	}

	switch op {
	case graph.OpConstant:
		// E103: constants carry their payload in value
		if s.Value == nil {
			errs = append(errs, DocumentError{
				Field:   field("value"),
				Message: "constant requires a value",
				Code:    ErrMissingValue,
			})
			break
		}
		n.Const = *s.Value
	case graph.OpQuery:
		// E105: queries address their source through in_node and claim an
		// output slot through query_index
		if s.InNode == nil {
			errs = append(errs, DocumentError{
				Field:   field("in_node"),
				Message: "query requires in_node",
				Code:    ErrMissingQueryField,
			})
		}
		if s.QueryIndex == nil {
			errs = append(errs, DocumentError{
				Field:   field("query_index"),
				Message: "query requires query_index",
				Code:    ErrMissingQueryField,
			})
		}
		if s.InNode != nil && s.QueryIndex != nil {
			n.Parents = []graph.NodeID{graph.NodeID(*s.InNode)}
			n.QueryIndex = *s.QueryIndex
		}
	default:
		// E104: every other operator lists its inputs in in_nodes
		if s.InNodes == nil {
			errs = append(errs, DocumentError{
				Field:   field("in_nodes"),
				Message: fmt.Sprintf("%s requires in_nodes", op),
				Code:    ErrMissingInNodes,
			})
			break
		}
		parents := make([]graph.NodeID, len(s.InNodes))
		for j, p := range s.InNodes {
			parents[j] = graph.NodeID(p)
		}
		n.Parents = parents
	}

	if len(errs) > 0 {
		return graph.Node{}, errs
	}
	return n, nil
}

// FromGraph renders a graph back into document form. The emitted
// document always carries explicit types.
func FromGraph(g *graph.Graph) *Document {
	doc := &Document{
		Comment: "created by minibayes",
		Nodes:   make([]NodeSpec, 0, g.Len()),
	}
	for id := graph.NodeID(0); int(id) < g.Len(); id++ {
		n := g.Node(id)
		spec := NodeSpec{
			Sequence: int(n.Seq),
			Operator: n.Op.String(),
			Type:     n.Type.String(),
		}
		switch n.Op {
		case graph.OpConstant:
			v := n.Const
			spec.Value = &v
		case graph.OpQuery:
			in := int(n.Parents[0])
			qi := n.QueryIndex
			spec.InNode = &in
			spec.QueryIndex = &qi
		default:
			in := make([]int, len(n.Parents))
			for j, p := range n.Parents {
				in[j] = int(p)
			}
			spec.InNodes = in
		}
		doc.Nodes = append(doc.Nodes, spec)
	}
	return doc
}

// Encode renders g as indented document JSON.
func Encode(g *graph.Graph) ([]byte, error) {
	out, err := json.MarshalIndent(FromGraph(g), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("model: marshal document: %w", err)
	}
	return append(out, '\n'), nil
}
