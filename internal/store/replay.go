package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/minibayes/minibayes/internal/engine"
	"github.com/minibayes/minibayes/internal/model"
)

// ReplayResult reports the outcome of a determinism verification.
type ReplayResult struct {
	RunID          string
	Fingerprint    string
	Iterations     int
	MovesChecked   int
	SamplesChecked int
	Verified       bool
	Divergence     *Divergence // nil when Verified
}

// Divergence pinpoints the first disagreement between a recorded run
// and its re-execution. For sample divergences Step carries the query
// index.
type Divergence struct {
	Kind      string // "fingerprint", "shape", "move", or "sample"
	Iteration int
	Step      int
	Detail    string
}

// String renders the divergence for operator output.
func (d *Divergence) String() string {
	switch d.Kind {
	case "fingerprint", "shape":
		return fmt.Sprintf("%s: %s", d.Kind, d.Detail)
	default:
		return fmt.Sprintf("%s at iteration %d step %d: %s", d.Kind, d.Iteration, d.Step, d.Detail)
	}
}

// Replay re-executes a recorded run from its stored document and seed
// and checks the replay against the stored records move-for-move and
// sample-for-sample. The first mismatch stops the comparison and is
// returned as the result's Divergence; a nil Divergence means the run
// reproduced exactly.
//
// Replay never writes. The recorded run is the reference; the
// re-execution is discarded.
func (s *Store) Replay(ctx context.Context, runID string) (*ReplayResult, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay: read run %s: %w", runID, err)
	}

	res := &ReplayResult{
		RunID:       run.ID,
		Fingerprint: run.Fingerprint,
		Iterations:  run.Iterations,
	}

	// The stored fingerprint must still match the stored inputs, or the
	// record itself was altered after the fact.
	var doc model.Document
	if err := json.Unmarshal(run.Document, &doc); err != nil {
		return nil, fmt.Errorf("replay: unmarshal document: %w", err)
	}
	fp, err := model.Fingerprint(&doc, run.Seed, run.Iterations)
	if err != nil {
		return nil, fmt.Errorf("replay: fingerprint: %w", err)
	}
	if fp != run.Fingerprint {
		res.Divergence = &Divergence{
			Kind:   "fingerprint",
			Detail: fmt.Sprintf("stored %s, recomputed %s", run.Fingerprint, fp),
		}
		return res, nil
	}

	g, err := model.Decode(run.Document)
	if err != nil {
		return nil, fmt.Errorf("replay: decode document: %w", err)
	}

	rec := &Recorder{iteration: -1}
	eng, err := engine.New(g, engine.WithSeed(run.Seed), engine.WithObserver(rec))
	if err != nil {
		return nil, fmt.Errorf("replay: construct engine: %w", err)
	}
	if _, err := eng.Infer(ctx, run.Iterations); err != nil {
		return nil, fmt.Errorf("replay: infer: %w", err)
	}

	wantMoves, err := s.ReadMoves(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if d := compareMoves(wantMoves, rec.moves); d != nil {
		res.Divergence = d
		return res, nil
	}
	res.MovesChecked = len(wantMoves)

	wantSamples, err := s.ReadSamples(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if d := compareSamples(wantSamples, rec.rows); d != nil {
		res.Divergence = d
		return res, nil
	}
	res.SamplesChecked = len(wantSamples)

	res.Verified = true
	return res, nil
}

// compareMoves returns the first point where the replayed decision
// stream departs from the recorded one.
func compareMoves(want, got []MoveRecord) *Divergence {
	if len(want) != len(got) {
		return &Divergence{
			Kind:   "shape",
			Detail: fmt.Sprintf("recorded %d moves, replay produced %d", len(want), len(got)),
		}
	}
	for i := range want {
		w, g := want[i], got[i]
		if movesEqual(w, g) {
			continue
		}
		return &Divergence{
			Kind:      "move",
			Iteration: w.Iteration,
			Step:      w.Step,
			Detail:    fmt.Sprintf("recorded %+v, replay produced %+v", w, g),
		}
	}
	return nil
}

// compareSamples returns the first point where the replayed sample
// stream departs from the recorded one.
func compareSamples(want, got []SampleRow) *Divergence {
	if len(want) != len(got) {
		return &Divergence{
			Kind:   "shape",
			Detail: fmt.Sprintf("recorded %d sample rows, replay produced %d", len(want), len(got)),
		}
	}
	for i := range want {
		w, g := want[i], got[i]
		if w.Iteration != g.Iteration || len(w.Values) != len(g.Values) {
			return &Divergence{
				Kind:   "shape",
				Detail: fmt.Sprintf("recorded row %+v, replay produced %+v", w, g),
			}
		}
		for q := range w.Values {
			if sameFloat(w.Values[q], g.Values[q]) {
				continue
			}
			return &Divergence{
				Kind:      "sample",
				Iteration: w.Iteration,
				Step:      q,
				Detail:    fmt.Sprintf("query %d: recorded %v, replay produced %v", q, w.Values[q], g.Values[q]),
			}
		}
	}
	return nil
}

// movesEqual compares two move records field by field with NaN-aware
// float comparison.
func movesEqual(a, b MoveRecord) bool {
	return a.Iteration == b.Iteration &&
		a.Step == b.Step &&
		a.Node == b.Node &&
		a.Coordinate == b.Coordinate &&
		sameFloat(a.Old, b.Old) &&
		sameFloat(a.New, b.New) &&
		sameFloat(a.LogRatio, b.LogRatio) &&
		a.Accepted == b.Accepted
}

// sameFloat reports value identity for replay comparison: NaN matches
// NaN, since stored NaN round-trips through NULL.
func sameFloat(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}
