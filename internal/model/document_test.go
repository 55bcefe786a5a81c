package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minibayes/minibayes/internal/graph"
)

// conjugateJSON is a hand-written document for the normal-normal model.
// Most nodes omit the type field to exercise defaulting.
const conjugateJSON = `{
  "comment": "hand-built normal-normal model",
  "nodes": [
    {"sequence": 0, "operator": "CONSTANT", "type": "REAL", "value": 0},
    {"sequence": 1, "operator": "CONSTANT", "value": 1},
    {"sequence": 2, "operator": "DISTRIBUTION_NORMAL", "in_nodes": [0, 1]},
    {"sequence": 3, "operator": "SAMPLE", "in_nodes": [2]},
    {"sequence": 4, "operator": "DISTRIBUTION_NORMAL", "in_nodes": [3, 1]},
    {"sequence": 5, "operator": "CONSTANT", "value": 1.0},
    {"sequence": 6, "operator": "OBSERVE", "in_nodes": [4, 5]},
    {"sequence": 7, "operator": "QUERY", "in_node": 3, "query_index": 0}
  ]
}`

// buildConjugate wires the same model through the builder, for
// comparing the two ingest paths.
func buildConjugate(t *testing.T) *graph.Graph {
	t.Helper()
	b := graph.NewBuilder()
	mu := b.AddConstant(0)
	sigma := b.AddConstant(1)
	prior, err := b.AddOperator(graph.OpDistNormal, mu, sigma)
	require.NoError(t, err)
	x, err := b.AddOperator(graph.OpSample, prior)
	require.NoError(t, err)
	lik, err := b.AddOperator(graph.OpDistNormal, x, sigma)
	require.NoError(t, err)
	y := b.AddConstant(1.0)
	_, err = b.AddOperator(graph.OpObserve, lik, y)
	require.NoError(t, err)
	_, err = b.AddQuery(x)
	require.NoError(t, err)

	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestDecode_ConjugateDocument(t *testing.T) {
	g, err := Decode([]byte(conjugateJSON))
	require.NoError(t, err)

	require.Equal(t, 8, g.Len())
	assert.Equal(t, []graph.NodeID{3}, g.Samples())
	assert.Equal(t, []graph.NodeID{7}, g.Queries())
	assert.Equal(t, []graph.NodeID{6}, g.Observations())

	// Omitted types resolve to the operator default.
	assert.Equal(t, graph.TypeDistribution, g.Node(2).Type)
	assert.Equal(t, graph.TypeReal, g.Node(3).Type)
	assert.Equal(t, graph.TypeNone, g.Node(7).Type)

	assert.Equal(t, graph.StorageScalarReal, g.Node(3).Storage)
	assert.Equal(t, 1.0, g.Node(5).Const)
	assert.Equal(t, []graph.NodeID{3}, g.Node(7).Parents)
	assert.Equal(t, 0, g.Node(7).QueryIndex)
}

func TestDecode_MatchesBuilderGraph(t *testing.T) {
	g, err := Decode([]byte(conjugateJSON))
	require.NoError(t, err)

	// Rendering both graphs normalizes comments and types, so the two
	// ingest paths must agree exactly.
	assert.Equal(t, FromGraph(buildConjugate(t)), FromGraph(g))
}

func TestEncode_RoundTrip(t *testing.T) {
	g := buildConjugate(t)
	data, err := Encode(g)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	g2, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, FromGraph(g), FromGraph(g2))
}

func TestEncode_PayloadsFollowOperator(t *testing.T) {
	data, err := Encode(buildConjugate(t))
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Nodes, 8)

	c := doc.Nodes[0]
	assert.Equal(t, "CONSTANT", c.Operator)
	assert.Equal(t, "REAL", c.Type)
	require.NotNil(t, c.Value)
	assert.Equal(t, 0.0, *c.Value)
	assert.Nil(t, c.InNodes)

	s := doc.Nodes[3]
	assert.Equal(t, "SAMPLE", s.Operator)
	assert.Equal(t, []int{2}, s.InNodes)
	assert.Nil(t, s.Value)

	q := doc.Nodes[7]
	assert.Equal(t, "QUERY", q.Operator)
	assert.Equal(t, "NONE", q.Type)
	require.NotNil(t, q.InNode)
	assert.Equal(t, 3, *q.InNode)
	require.NotNil(t, q.QueryIndex)
	assert.Equal(t, 0, *q.QueryIndex)
	assert.Nil(t, q.InNodes)

	// Query payloads never leak onto other node kinds.
	assert.Equal(t, 1, strings.Count(string(data), "query_index"))
	assert.Equal(t, 1, strings.Count(string(data), "in_node\""))
}

// Encoding is deterministic: types are always explicit and MarshalIndent
// fixes the layout, so the document bytes themselves are part of the
// contract. Regenerate with: go test ./internal/model -update
func TestEncode_GoldenDocument(t *testing.T) {
	data, err := Encode(buildConjugate(t))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "conjugate_document", data)
}

func TestDecode_CollectsEveryMappingError(t *testing.T) {
	doc := `{"nodes": [
	  {"sequence": 0, "operator": "BOGUS"},
	  {"sequence": 1, "operator": "CONSTANT"},
	  {"sequence": 2, "operator": "ADD"},
	  {"sequence": 3, "operator": "QUERY"}
	]}`

	_, err := Decode([]byte(doc))
	require.Error(t, err)
	require.True(t, IsDecodeError(err))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Len(t, de.Errors, 5)

	codes := make(map[string]int)
	fields := make([]string, 0, len(de.Errors))
	for _, e := range de.Errors {
		codes[e.Code]++
		fields = append(fields, e.Field)
	}
	assert.Equal(t, 1, codes[ErrUnknownOperatorName])
	assert.Equal(t, 1, codes[ErrMissingValue])
	assert.Equal(t, 1, codes[ErrMissingInNodes])
	assert.Equal(t, 2, codes[ErrMissingQueryField])
	assert.Equal(t, []string{
		"nodes[0].operator",
		"nodes[1].value",
		"nodes[2].in_nodes",
		"nodes[3].in_node",
		"nodes[3].query_index",
	}, fields)

	assert.Contains(t, err.Error(), "5 document errors")
	assert.Contains(t, err.Error(), "[E101]")
}

func TestDecode_UnknownTypeName(t *testing.T) {
	doc := `{"nodes": [
	  {"sequence": 0, "operator": "CONSTANT", "type": "COMPLEX", "value": 1}
	]}`

	_, err := Decode([]byte(doc))
	require.True(t, IsDecodeError(err))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.Len(t, de.Errors, 1)
	assert.Equal(t, ErrUnknownTypeName, de.Errors[0].Code)
	assert.Equal(t, "nodes[0].type", de.Errors[0].Field)
}

func TestValidateBytes_ShapeViolations(t *testing.T) {
	cases := []struct {
		name    string
		doc     string
		mention string
	}{
		{"malformed json", `{"nodes": [`, ""},
		{"missing nodes", `{"comment": "empty"}`, "nodes"},
		{"wrong field type", `{"nodes": [{"sequence": "zero", "operator": "CONSTANT", "value": 1}]}`, "sequence"},
		{"unknown field", `{"nodes": [{"sequence": 0, "operator": "CONSTANT", "value": 1, "flavor": "salty"}]}`, "flavor"},
		{"negative sequence", `{"nodes": [{"sequence": -1, "operator": "CONSTANT", "value": 1}]}`, "sequence"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateBytes([]byte(tc.doc))
			require.NotEmpty(t, errs)
			var all strings.Builder
			for _, e := range errs {
				assert.Equal(t, ErrDocumentShape, e.Code)
				all.WriteString(e.Field)
				all.WriteString(" ")
				all.WriteString(e.Message)
				all.WriteString(" ")
			}
			if tc.mention != "" {
				assert.Contains(t, all.String(), tc.mention)
			}
		})
	}
}

func TestValidateBytes_AcceptsConjugateDocument(t *testing.T) {
	assert.Empty(t, ValidateBytes([]byte(conjugateJSON)))
}

func TestDecode_StructuralErrorsPassThrough(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{
			"forward reference",
			`{"nodes": [{"sequence": 0, "operator": "ADD", "in_nodes": [1, 2]}]}`,
		},
		{
			"sequence gap",
			`{"nodes": [
			  {"sequence": 0, "operator": "CONSTANT", "value": 1},
			  {"sequence": 5, "operator": "CONSTANT", "value": 2}
			]}`,
		},
		{
			"declared type contradicts operator",
			`{"nodes": [{"sequence": 0, "operator": "CONSTANT", "type": "DISTRIBUTION", "value": 1}]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.doc))
			require.Error(t, err)
			assert.False(t, IsDecodeError(err))
			assert.True(t, graph.IsStructural(err))
		})
	}
}

func TestDecode_ShapeCheckedBeforeStructure(t *testing.T) {
	// Carries both an unknown field and a forward reference. Only the
	// schema verdict comes back; graph construction never runs.
	doc := `{"nodes": [
	  {"sequence": 0, "operator": "ADD", "in_nodes": [5, 6], "flavor": "salty"}
	]}`

	_, err := Decode([]byte(doc))
	require.True(t, IsDecodeError(err))
	assert.False(t, graph.IsStructural(err))

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	require.NotEmpty(t, de.Errors)
	for _, e := range de.Errors {
		assert.Equal(t, ErrDocumentShape, e.Code)
	}
}

func TestDecode_EmptyNodeList(t *testing.T) {
	g, err := Decode([]byte(`{"nodes": []}`))
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())
}

func TestDocumentError_Format(t *testing.T) {
	withField := DocumentError{
		Field:   "nodes[0].operator",
		Message: `unknown operator "X"`,
		Code:    ErrUnknownOperatorName,
	}
	assert.Equal(t, `[E101] nodes[0].operator: unknown operator "X"`, withField.Error())

	bare := DocumentError{Message: "boom", Code: ErrDocumentShape}
	assert.Equal(t, "[E100] boom", bare.Error())
}

func TestDecodeError_SingleErrorIsUnwrapped(t *testing.T) {
	one := &DecodeError{Errors: []DocumentError{
		{Field: "nodes[1].value", Message: "constant requires a value", Code: ErrMissingValue},
	}}
	assert.Equal(t, "[E103] nodes[1].value: constant requires a value", one.Error())
}
