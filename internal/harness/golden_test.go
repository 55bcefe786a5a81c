package harness

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipWithoutGolden skips the test when its golden file is absent,
// unless the goldie -update flag is set (which creates it).
func skipWithoutGolden(t *testing.T, name string) {
	t.Helper()
	if f := flag.Lookup("update"); f != nil && f.Value.String() == "true" {
		return
	}
	path := filepath.Join("testdata", "golden", name+".golden")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skipf("golden file %s missing; create it with: go test ./internal/harness -run %s -update", path, t.Name())
	}
}

func TestRunWithGolden_ConjugateTrace(t *testing.T) {
	skipWithoutGolden(t, "conjugate_trace")

	scenario := conjugateScenario(t, "conjugate_trace")
	scenario.Iterations = 5
	scenario.BurnIn = 0

	err := RunWithGolden(t, scenario)
	require.NoError(t, err)
}

func TestAssertGolden_FromResult(t *testing.T) {
	skipWithoutGolden(t, "assert_golden_trace")

	scenario := conjugateScenario(t, "assert_golden_trace")
	scenario.Iterations = 5
	scenario.BurnIn = 0

	result, err := Run(scenario)
	require.NoError(t, err)

	err = AssertGolden(t, "assert_golden_trace", result)
	require.NoError(t, err)
}

func TestTraceSnapshotJSON(t *testing.T) {
	snapshot := TraceSnapshot{
		ScenarioName: "test_scenario",
		Seed:         42,
		Iterations:   1,
		Moves: []TraceMove{
			{Iteration: 0, Node: 3, Coordinate: 0, Old: 0.1, New: 0.2, LogRatio: -0.05, Accepted: true},
		},
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	require.NoError(t, err)

	jsonStr := string(data)
	require.Contains(t, jsonStr, `"scenario_name": "test_scenario"`)
	require.Contains(t, jsonStr, `"seed": 42`)
	require.Contains(t, jsonStr, `"moves": [`)
	require.Contains(t, jsonStr, `"log_ratio": -0.05`)
	require.Contains(t, jsonStr, `"accepted": true`)
}

func TestTraceSnapshotJSON_Deterministic(t *testing.T) {
	// Golden comparison relies on byte-identical serialization.
	snapshot := TraceSnapshot{
		ScenarioName: "determinism_test",
		Seed:         7,
		Iterations:   2,
		Moves: []TraceMove{
			{Iteration: 0, Node: 3, Old: 0.1, New: 0.2, LogRatio: 0.0, Accepted: true},
			{Iteration: 1, Node: 3, Old: 0.2, New: 0.15, LogRatio: -0.01, Accepted: false},
		},
	}

	json1, err := json.MarshalIndent(snapshot, "", "  ")
	require.NoError(t, err)
	json2, err := json.MarshalIndent(snapshot, "", "  ")
	require.NoError(t, err)

	assert.Equal(t, json1, json2, "snapshot serialization must be deterministic")
}
