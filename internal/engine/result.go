package engine

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/minibayes/minibayes/internal/graph"
)

// NodeAcceptance counts accept/reject outcomes for one latent node across
// a run. Simplex nodes attempt one move per coordinate per iteration, so
// their attempt counts are a multiple of the iteration count.
type NodeAcceptance struct {
	Node     graph.NodeID
	Attempts int
	Accepted int
}

// Rate returns the acceptance fraction, zero when nothing was attempted.
func (a NodeAcceptance) Rate() float64 {
	if a.Attempts == 0 {
		return 0
	}
	return float64(a.Accepted) / float64(a.Attempts)
}

// Result is a completed inference run: the recorded query draws plus
// per-node acceptance bookkeeping.
type Result struct {
	// Samples holds one row per iteration and one column per query, in
	// query-index order. It is nil when the graph declares no queries.
	Samples *mat.Dense

	// Acceptance lists per-node outcome counts in stepping order.
	Acceptance []NodeAcceptance

	// Iterations is the recorded sweep count.
	Iterations int
}

// Draws returns the recorded values of one query as a fresh slice.
func (r *Result) Draws(queryIndex int) []float64 {
	return mat.Col(nil, queryIndex, r.Samples)
}

// Mean returns the posterior mean estimate of one query.
func (r *Result) Mean(queryIndex int) float64 {
	return stat.Mean(r.Draws(queryIndex), nil)
}

// StdDev returns the posterior standard deviation estimate of one query.
func (r *Result) StdDev(queryIndex int) float64 {
	return stat.StdDev(r.Draws(queryIndex), nil)
}

// Summary is the moment report for one query.
type Summary struct {
	QueryIndex int
	Mean       float64
	StdDev     float64
}

// Summaries reports mean and standard deviation for every query, in
// query-index order.
func (r *Result) Summaries() []Summary {
	return r.SummariesAfter(0)
}

// SummariesAfter reports moments computed from the draws after the first
// burnIn iterations, in query-index order. The recorded draws themselves
// are untouched; callers keep burnIn below the iteration count.
func (r *Result) SummariesAfter(burnIn int) []Summary {
	if r.Samples == nil {
		return nil
	}
	if burnIn < 0 {
		burnIn = 0
	}
	_, cols := r.Samples.Dims()
	out := make([]Summary, cols)
	for q := 0; q < cols; q++ {
		draws := r.Draws(q)[burnIn:]
		out[q] = Summary{
			QueryIndex: q,
			Mean:       stat.Mean(draws, nil),
			StdDev:     stat.StdDev(draws, nil),
		}
	}
	return out
}
