package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"
)

// rowScanner covers sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ListRuns returns all runs. UUIDv7 identifiers sort lexically by
// creation time, so ordering by id is chronological without consulting
// the informational created_at column.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, document, seed, iterations, created_at
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	// Return empty slice instead of nil
	if runs == nil {
		runs = []Run{}
	}

	return runs, nil
}

// ReadRun retrieves a single run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, fingerprint, document, seed, iterations, created_at
		FROM runs
		WHERE id = ?
	`, id)
	return scanRun(row)
}

// FindRunsByFingerprint returns every run recorded for one fingerprint,
// oldest first.
func (s *Store) FindRunsByFingerprint(ctx context.Context, fingerprint string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fingerprint, document, seed, iterations, created_at
		FROM runs
		WHERE fingerprint = ?
		ORDER BY id COLLATE BINARY ASC
	`, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("query runs by fingerprint: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	if runs == nil {
		runs = []Run{}
	}

	return runs, nil
}

// scanRun scans one runs row.
func scanRun(row rowScanner) (Run, error) {
	var run Run
	var document string
	var seed int64
	var createdAt string

	if err := row.Scan(
		&run.ID, &run.Fingerprint, &document, &seed, &run.Iterations, &createdAt,
	); err != nil {
		return Run{}, err
	}

	run.Document = []byte(document)
	run.Seed = uint64(seed)

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = t

	return run, nil
}

// ReadMoves returns the recorded decision stream of a run, ordered by
// iteration then step, exactly as the engine produced it.
func (s *Store) ReadMoves(ctx context.Context, runID string) ([]MoveRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT iteration, step, node, coordinate, old_value, new_value, log_ratio, accepted
		FROM moves
		WHERE run_id = ?
		ORDER BY iteration ASC, step ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	var moves []MoveRecord
	for rows.Next() {
		var m MoveRecord
		var logRatio sql.NullFloat64
		if err := rows.Scan(
			&m.Iteration, &m.Step, &m.Node, &m.Coordinate,
			&m.Old, &m.New, &logRatio, &m.Accepted,
		); err != nil {
			return nil, fmt.Errorf("scan move: %w", err)
		}
		// NULL log_ratio is a stored NaN.
		m.LogRatio = math.NaN()
		if logRatio.Valid {
			m.LogRatio = logRatio.Float64
		}
		moves = append(moves, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moves: %w", err)
	}

	if moves == nil {
		moves = []MoveRecord{}
	}

	return moves, nil
}

// ReadSamples returns the per-iteration query values of a run, grouped
// into rows in iteration order.
func (s *Store) ReadSamples(ctx context.Context, runID string) ([]SampleRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT iteration, query_index, value
		FROM samples
		WHERE run_id = ?
		ORDER BY iteration ASC, query_index ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []SampleRow
	for rows.Next() {
		var iteration, queryIndex int
		var value float64
		if err := rows.Scan(&iteration, &queryIndex, &value); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].Iteration != iteration {
			out = append(out, SampleRow{Iteration: iteration})
		}
		row := &out[len(out)-1]
		if queryIndex != len(row.Values) {
			return nil, fmt.Errorf("read samples: iteration %d has a gap before query %d", iteration, queryIndex)
		}
		row.Values = append(row.Values, value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}

	if out == nil {
		out = []SampleRow{}
	}

	return out, nil
}

// ReadQueryDraws returns one query's values across all iterations of a
// run, in iteration order. Served by the covering index from schema v1.
func (s *Store) ReadQueryDraws(ctx context.Context, runID string, queryIndex int) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value
		FROM samples
		WHERE run_id = ? AND query_index = ?
		ORDER BY iteration ASC
	`, runID, queryIndex)
	if err != nil {
		return nil, fmt.Errorf("query draws: %w", err)
	}
	defer rows.Close()

	var draws []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan draw: %w", err)
		}
		draws = append(draws, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draws: %w", err)
	}

	if draws == nil {
		draws = []float64{}
	}

	return draws, nil
}
