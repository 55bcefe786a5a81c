package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/minibayes/minibayes/internal/stepper"
)

// NewRunID returns a fresh UUIDv7 run identifier. V7 ids carry a
// millisecond timestamp in the high bits, so lexical order follows
// creation order.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Run is one recorded inference run. The fingerprint binds the stored
// document, seed, and iteration count into one replayable identity.
type Run struct {
	ID          string
	Fingerprint string
	Document    []byte
	Seed        uint64
	Iterations  int
	CreatedAt   time.Time
}

// MoveRecord is one stored accept/reject decision. Step is the attempt
// index within the iteration, counting every coordinate of every latent
// in stepping order.
type MoveRecord struct {
	Iteration  int
	Step       int
	Node       int
	Coordinate int
	Old        float64
	New        float64
	LogRatio   float64
	Accepted   bool
}

// SampleRow is one iteration's query values in query-index order.
type SampleRow struct {
	Iteration int
	Values    []float64
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, fingerprint, document, seed, iterations, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Fingerprint,
		string(run.Document),
		int64(run.Seed),
		run.Iterations,
		run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// Recorder buffers the move and sample stream of one run and writes
// everything in a single transaction at Commit. It satisfies the
// engine's observer contract, so recording a run is one option:
//
//	rec := st.NewRecorder(run)
//	eng, err := engine.New(g, engine.WithObserver(rec))
//	// ... eng.Infer ...
//	err = rec.Commit(ctx)
//
// Nothing reaches the database before Commit, so an aborted run leaves
// no partial record.
type Recorder struct {
	store *Store
	run   Run

	iteration int
	step      int
	moves     []MoveRecord
	rows      []SampleRow
}

// NewRecorder returns a Recorder that will write under the given run
// record at Commit.
func (s *Store) NewRecorder(run Run) *Recorder {
	return &Recorder{store: s, run: run, iteration: -1}
}

// OnMove buffers one accept/reject decision.
func (r *Recorder) OnMove(iteration int, move stepper.Move) {
	if iteration != r.iteration {
		r.iteration = iteration
		r.step = 0
	}
	r.moves = append(r.moves, MoveRecord{
		Iteration:  iteration,
		Step:       r.step,
		Node:       int(move.Node),
		Coordinate: move.Coordinate,
		Old:        move.Old,
		New:        move.New,
		LogRatio:   move.LogRatio,
		Accepted:   move.Accepted,
	})
	r.step++
}

// OnSample buffers one iteration's query values. The engine reuses the
// slice, so the values are copied here.
func (r *Recorder) OnSample(iteration int, values []float64) {
	r.rows = append(r.rows, SampleRow{
		Iteration: iteration,
		Values:    append([]float64(nil), values...),
	})
}

// Commit writes the run row and every buffered move and sample in one
// transaction. The Recorder is not drained; committing twice writes the
// run once (idempotent id insert) but would duplicate-key on the moves,
// so commit exactly once.
func (r *Recorder) Commit(ctx context.Context) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, fingerprint, document, seed, iterations, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.run.ID,
		r.run.Fingerprint,
		string(r.run.Document),
		int64(r.run.Seed),
		r.run.Iterations,
		r.run.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("commit run: insert run: %w", err)
	}

	moveStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO moves
		(run_id, iteration, step, node, coordinate, old_value, new_value, log_ratio, accepted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("commit run: prepare moves: %w", err)
	}
	defer moveStmt.Close()

	for _, m := range r.moves {
		// NaN log ratios land as NULL; SQLite has no NaN.
		_, err := moveStmt.ExecContext(ctx,
			r.run.ID, m.Iteration, m.Step, m.Node, m.Coordinate,
			m.Old, m.New, m.LogRatio, m.Accepted,
		)
		if err != nil {
			return fmt.Errorf("commit run: insert move (iteration %d, step %d): %w", m.Iteration, m.Step, err)
		}
	}

	sampleStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples
		(run_id, iteration, query_index, value)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("commit run: prepare samples: %w", err)
	}
	defer sampleStmt.Close()

	for _, row := range r.rows {
		for q, v := range row.Values {
			if _, err := sampleStmt.ExecContext(ctx, r.run.ID, row.Iteration, q, v); err != nil {
				return fmt.Errorf("commit run: insert sample (iteration %d, query %d): %w", row.Iteration, q, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: commit: %w", err)
	}
	return nil
}
