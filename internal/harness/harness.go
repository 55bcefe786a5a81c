package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/minibayes/minibayes/internal/engine"
	"github.com/minibayes/minibayes/internal/model"
	"github.com/minibayes/minibayes/internal/stepper"
)

// traceObserver captures every chain decision as a TraceMove.
// Sample rows are not retained; moments come from the engine result.
type traceObserver struct {
	moves []TraceMove
}

// OnMove implements engine.Observer.
func (o *traceObserver) OnMove(iteration int, m stepper.Move) {
	o.moves = append(o.moves, TraceMove{
		Iteration:  iteration,
		Node:       int(m.Node),
		Coordinate: m.Coordinate,
		Old:        m.Old,
		New:        m.New,
		LogRatio:   m.LogRatio,
		Accepted:   m.Accepted,
	})
}

// OnSample implements engine.Observer.
func (o *traceObserver) OnSample(int, []float64) {}

// Run executes a test scenario and returns the result.
//
// The scenario's seed fixes the whole chain, so repeated runs produce
// identical traces.
//
// Execution flow:
// 1. Read and decode the graph document
// 2. Build the engine with a fixed seed and a trace observer
// 3. Run burn-in plus the requested draws
// 4. Evaluate moment expectations against the post-burn-in draws
// 5. Return the verdict with the trace and any failures
func Run(scenario *Scenario) (*Result, error) {
	data, err := os.ReadFile(scenario.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph document: %w", err)
	}
	g, err := model.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode graph document: %w", err)
	}

	seed := scenario.Seed
	if seed == 0 {
		seed = engine.DefaultSeed
	}

	trace := &traceObserver{}
	eng, err := engine.New(g,
		engine.WithSeed(seed),
		engine.WithObserver(trace),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	total := scenario.BurnIn + scenario.Iterations
	res, err := eng.Infer(context.Background(), total)
	if err != nil {
		return nil, fmt.Errorf("failed to run chain: %w", err)
	}

	result := NewResult(scenario.Name)
	result.Moves = trace.moves
	for _, s := range res.SummariesAfter(scenario.BurnIn) {
		result.Summaries = append(result.Summaries, Moment{
			Query:  s.QueryIndex,
			Mean:   s.Mean,
			StdDev: s.StdDev,
		})
	}

	for _, msg := range EvaluateExpectations(result.Summaries, scenario.Expect) {
		result.AddFailure(msg)
	}

	return result, nil
}
