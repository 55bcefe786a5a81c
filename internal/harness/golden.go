package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the complete move trace for a scenario execution.
// Serialization uses indented JSON with a fixed field order, so identical
// chains produce byte-identical snapshots.
type TraceSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	Seed         uint64      `json:"seed,omitempty"`
	Iterations   int         `json:"iterations,omitempty"`
	BurnIn       int         `json:"burn_in,omitempty"`
	Moves        []TraceMove `json:"moves"`
}

// assertSnapshot marshals the snapshot and compares it against the golden
// file named after the scenario, under testdata/golden.
func assertSnapshot(t *testing.T, name string, snapshot TraceSnapshot) error {
	t.Helper()

	traceJSON, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}

// RunWithGolden executes a scenario and compares the trace against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files serve as the source of truth for expected chain behavior:
// a change to the proposal math or the acceptance rule shows up as a
// trace diff, and so does a drift in the random stream.
//
// Returns an error if scenario execution fails. A trace mismatch fails the
// test through goldie rather than the error return.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	return assertSnapshot(t, scenario.Name, TraceSnapshot{
		ScenarioName: scenario.Name,
		Seed:         scenario.Seed,
		Iterations:   scenario.Iterations,
		BurnIn:       scenario.BurnIn,
		Moves:        result.Moves,
	})
}

// AssertGolden compares an already-obtained result's trace against the
// golden file for scenarioName, without re-running the chain.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	return assertSnapshot(t, scenarioName, TraceSnapshot{
		ScenarioName: scenarioName,
		Moves:        result.Moves,
	})
}
