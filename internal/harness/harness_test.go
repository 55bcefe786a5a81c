package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minibayes/minibayes/internal/engine"
)

// conjugateScenario builds an in-memory scenario over the test graph.
func conjugateScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	dir := t.TempDir()
	return &Scenario{
		Name:        name,
		Description: "conjugate normal posterior",
		Graph:       createTestGraph(t, dir, "model.json"),
		Seed:        42,
		Iterations:  400,
		BurnIn:      50,
		Expect: []MomentExpectation{
			{Query: 0, Mean: 0.5, Tolerance: 0.25},
		},
	}
}

func TestRun_ConjugatePosterior(t *testing.T) {
	scenario := conjugateScenario(t, "conjugate")

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "scenario should pass: failures=%v", result.Failures)
	assert.Empty(t, result.Failures)
	assert.Equal(t, "conjugate", result.ScenarioName)

	// One scalar latent: one move per sweep, burn-in included.
	assert.Len(t, result.Moves, 450)

	require.Len(t, result.Summaries, 1)
	assert.Equal(t, 0, result.Summaries[0].Query)
	assert.InDelta(t, 0.5, result.Summaries[0].Mean, 0.25)
}

func TestRun_FailedExpectationListsFailure(t *testing.T) {
	scenario := conjugateScenario(t, "doomed")
	scenario.Expect = []MomentExpectation{
		{Query: 0, Mean: 5.0, Tolerance: 0.01},
	}

	result, err := Run(scenario)
	require.NoError(t, err, "a failed expectation is a result, not an error")

	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Failures)
	assert.Contains(t, result.Failures[0], "query 0 mean")

	// The trace is still captured for debugging.
	assert.Len(t, result.Moves, 450)
}

func TestRun_TraceIsDeterministic(t *testing.T) {
	scenario := conjugateScenario(t, "repeat")
	scenario.Seed = 7

	result1, err := Run(scenario)
	require.NoError(t, err)
	result2, err := Run(scenario)
	require.NoError(t, err)

	require.Equal(t, len(result1.Moves), len(result2.Moves),
		"replay should produce the same number of moves")
	assert.Equal(t, result1.Moves, result2.Moves)
	assert.Equal(t, result1.Summaries, result2.Summaries)
}

func TestRun_ZeroSeedUsesEngineDefault(t *testing.T) {
	implicit := conjugateScenario(t, "implicit_seed")
	implicit.Seed = 0
	explicit := conjugateScenario(t, "explicit_seed")
	explicit.Seed = engine.DefaultSeed

	res1, err := Run(implicit)
	require.NoError(t, err)
	res2, err := Run(explicit)
	require.NoError(t, err)

	assert.Equal(t, res1.Moves, res2.Moves)
}

func TestRun_MovesCarryChainOrder(t *testing.T) {
	scenario := conjugateScenario(t, "ordering")

	result, err := Run(scenario)
	require.NoError(t, err)

	for i, m := range result.Moves {
		assert.Equal(t, i, m.Iteration, "one move per sweep for a single scalar latent")
		assert.Equal(t, 3, m.Node)
		assert.Equal(t, 0, m.Coordinate)
	}
}

func TestRun_MissingGraphFile(t *testing.T) {
	scenario := &Scenario{
		Name:        "missing",
		Description: "graph path does not exist",
		Graph:       "/nonexistent/model.json",
		Iterations:  10,
		Expect:      []MomentExpectation{{Query: 0, Mean: 0, Tolerance: 1}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read graph document")
}

func TestRun_UndecodableDocument(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(graphPath,
		[]byte(`{"nodes": [{"sequence": 0, "operator": "BOGUS", "in_nodes": []}]}`), 0644))

	scenario := &Scenario{
		Name:        "bad_document",
		Description: "unknown operator",
		Graph:       graphPath,
		Iterations:  10,
		Expect:      []MomentExpectation{{Query: 0, Mean: 0, Tolerance: 1}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode graph document")
}

func TestRun_UnsamplableGraph(t *testing.T) {
	dir := t.TempDir()
	graphPath := filepath.Join(dir, "coin.json")
	require.NoError(t, os.WriteFile(graphPath, []byte(`{
  "nodes": [
    {"sequence": 0, "operator": "CONSTANT", "value": 0.5},
    {"sequence": 1, "operator": "DISTRIBUTION_BERNOULLI", "in_nodes": [0]},
    {"sequence": 2, "operator": "SAMPLE", "in_nodes": [1]},
    {"sequence": 3, "operator": "QUERY", "in_node": 2, "query_index": 0}
  ]
}`), 0644))

	scenario := &Scenario{
		Name:        "coin",
		Description: "bernoulli latent has no gradient-informed stepper",
		Graph:       graphPath,
		Iterations:  10,
		Expect:      []MomentExpectation{{Query: 0, Mean: 0.5, Tolerance: 0.5}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build engine")
}
