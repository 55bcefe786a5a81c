package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/minibayes/minibayes/internal/dist"
	"github.com/minibayes/minibayes/internal/graph"
	"github.com/minibayes/minibayes/internal/profile"
	"github.com/minibayes/minibayes/internal/stepper"
)

// DefaultSeed seeds the shared random source when no seed or source option
// is given. Runs without an explicit seed are still reproducible.
const DefaultSeed = 5123401

// latent is the precomputed stepping plan for one sample node: the stepper
// that advances it and its affected sets, fixed at construction because
// the graph structure never changes.
type latent struct {
	node    graph.NodeID
	stepper stepper.Stepper
	det     []graph.NodeID
	sto     []graph.NodeID
}

// Engine runs single-site inference over a validated graph.
//
// The engine owns the shared random source and the iteration loop; the
// stepping protocol itself lives in the stepper registry. All chain state
// lives in the graph arena, mutated only on the goroutine that called
// Infer.
//
// Thread-safety model:
//   - New(): safe from any goroutine
//   - Infer(): must be called from exactly one goroutine at a time
//   - Result: immutable once returned
//
// INVARIANTS:
//   - Latent nodes are stepped in sequence order, every iteration
//   - Every random draw flows through the one engine source
//   - The graph is left consistent (values match latent state) on every
//     return path, including cancellation
type Engine struct {
	graph    *graph.Graph
	steppers *stepper.Registry
	rng      *rand.Rand
	log      *slog.Logger
	profile  profile.Sink
	observer Observer
	latents  []latent
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithSeed reseeds the shared random source. Two engines built on the
// same graph with the same seed produce identical runs.
func WithSeed(seed uint64) EngineOption {
	return func(e *Engine) {
		e.rng = rand.New(rand.NewSource(seed))
	}
}

// WithSource replaces the shared random source. Tests use this to inject
// fixed or scripted sources.
func WithSource(src rand.Source) EngineOption {
	return func(e *Engine) {
		e.rng = rand.New(src)
	}
}

// WithSteppers replaces the default stepper registry. A custom registry
// carries its own profiling sinks; WithProfile only reaches the default
// one.
func WithSteppers(r *stepper.Registry) EngineOption {
	return func(e *Engine) {
		e.steppers = r
	}
}

// WithProfile attaches a profiling sink to the run.
func WithProfile(sink profile.Sink) EngineOption {
	return func(e *Engine) {
		e.profile = sink
	}
}

// WithObserver attaches a per-attempt record observer, the seam run
// recorders plug into.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithLogger routes engine logging to l instead of the default logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// New builds an engine over g.
//
// Construction resolves a stepper for every latent node through the
// registry (default: simplex decomposition first, then scalar) and
// precomputes each latent's affected sets. A latent no stepper can
// advance, such as a bernoulli sample, fails with a NO_STEPPER error.
// Queries must read scalar-valued sources; a query on a whole simplex
// sample fails with INVALID_QUERY, since recorded samples are scalar
// columns. Index the coordinates instead.
func New(g *graph.Graph, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		graph:    g,
		rng:      rand.New(rand.NewSource(DefaultSeed)),
		log:      slog.Default(),
		profile:  profile.Nop{},
		observer: NopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.steppers == nil {
		e.steppers = stepper.NewRegistry(stepper.NewSimplex(e.profile), stepper.NewScalar(e.profile))
	}

	for _, q := range g.Queries() {
		n := g.Node(q)
		src := g.Node(n.Parents[0])
		if src.Op == graph.OpSample && src.Storage == graph.StorageSimplex {
			return nil, NewInvalidQueryError(q, n.QueryIndex,
				"query source %d is simplex-valued; query its INDEX coordinates instead", src.Seq)
		}
	}

	for _, s := range g.Samples() {
		n := g.Node(s)
		st, ok := e.steppers.For(n)
		if !ok {
			return nil, NewNoStepperError(s, n.Storage, g.DistOp(s))
		}
		det, sto := g.Affected(s)
		e.latents = append(e.latents, latent{node: s, stepper: st, det: det, sto: sto})
	}

	e.log.Debug("engine constructed",
		"nodes", g.Len(),
		"latents", len(e.latents),
		"queries", len(g.Queries()),
	)
	return e, nil
}

// Graph returns the graph the engine runs on.
func (e *Engine) Graph() *graph.Graph { return e.graph }

// Latents returns the latent nodes in stepping order.
func (e *Engine) Latents() []graph.NodeID {
	out := make([]graph.NodeID, len(e.latents))
	for i, l := range e.latents {
		out[i] = l.node
	}
	return out
}

// Infer runs iterations sweeps of the chain and returns the recorded
// draws. Each sweep steps every latent node in sequence order, then
// records the current query values as one row.
//
// Each call is a fresh run: the chain is reinitialized from the priors
// before the first sweep. Cancellation is observed between step attempts
// only, never inside one, so the graph is consistent when Infer returns.
func (e *Engine) Infer(ctx context.Context, iterations int) (*Result, error) {
	if iterations <= 0 {
		return nil, fmt.Errorf("engine: iterations must be positive, got %d", iterations)
	}

	e.profile.Begin(profile.EventInfer)
	defer e.profile.End(profile.EventInfer)

	if err := e.initialize(); err != nil {
		return nil, err
	}

	queries := e.graph.Queries()
	res := &Result{
		Acceptance: make([]NodeAcceptance, len(e.latents)),
		Iterations: iterations,
	}
	for i, l := range e.latents {
		res.Acceptance[i] = NodeAcceptance{Node: l.node}
	}
	if len(queries) > 0 {
		res.Samples = mat.NewDense(iterations, len(queries), nil)
	}
	row := make([]float64, len(queries))

	e.log.Info("inference starting",
		"iterations", iterations,
		"latents", len(e.latents),
		"queries", len(queries),
	)

	for it := 0; it < iterations; it++ {
		for i := range e.latents {
			l := &e.latents[i]
			if err := ctx.Err(); err != nil {
				e.log.Info("inference cancelled",
					"iteration", it,
					"node", int(l.node),
				)
				return nil, err
			}
			moves, err := l.stepper.Step(e.graph, l.node, l.det, l.sto, e.rng)
			if err != nil {
				e.log.Error("step failed",
					"iteration", it,
					"node", int(l.node),
					"error", err,
				)
				return nil, fmt.Errorf("iteration %d: %w", it, err)
			}
			for _, m := range moves {
				res.Acceptance[i].Attempts++
				if m.Accepted {
					res.Acceptance[i].Accepted++
				}
				e.observer.OnMove(it, m)
			}
		}

		for qi, q := range queries {
			row[qi] = e.graph.Node(e.graph.Node(q).Parents[0]).Value.Float()
		}
		if res.Samples != nil {
			res.Samples.SetRow(it, row)
		}
		e.observer.OnSample(it, row)
	}

	attempts, accepted := 0, 0
	for _, a := range res.Acceptance {
		attempts += a.Attempts
		accepted += a.Accepted
	}
	e.log.Info("inference finished",
		"iterations", iterations,
		"attempts", attempts,
		"accepted", accepted,
	)
	return res, nil
}

// initialize draws a starting state: every latent samples its prior
// through the shared source, every deterministic node evaluates, both in
// sequence order so parents are always ready before their children.
func (e *Engine) initialize() error {
	e.profile.Begin(profile.EventInit)
	defer e.profile.End(profile.EventInit)

	g := e.graph
	for id := graph.NodeID(0); int(id) < g.Len(); id++ {
		n := g.Node(id)
		if n.Op == graph.OpSample {
			if err := e.drawInitial(n); err != nil {
				return err
			}
			continue
		}
		if err := g.EvalNode(id); err != nil {
			return NewInitError(id, "initial evaluation failed: %v", err)
		}
	}
	e.log.Debug("chain initialized", "latents", len(e.latents))
	return nil
}

// drawInitial draws one latent's starting value from its prior. Simplex
// latents store the raw positive gamma draws as the unconstrained value
// and the normalized vector as the constrained value; scalar latents
// alias the two.
func (e *Engine) drawInitial(n *graph.Node) error {
	d, err := dist.ForNode(e.graph, n.Parents[0])
	if err != nil {
		return NewInitError(n.Seq, "%v", err)
	}
	if !d.Valid() {
		return NewInitError(n.Seq, "prior %s has invalid parameters %v",
			e.graph.DistOp(n.Seq), e.graph.DistParams(n.Parents[0]))
	}

	if n.Storage == graph.StorageSimplex {
		n.Unconstrained = d.(dist.Dirichlet).SampleGammas(e.rng)
		n.RefreshSimplexValue()
		return nil
	}

	v := d.Sample(e.rng).Float()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NewInitError(n.Seq, "initial draw from %s is %g", e.graph.DistOp(n.Seq), v)
	}
	n.Value.SetFloat(v)
	n.Unconstrained.SetFloat(v)
	return nil
}
