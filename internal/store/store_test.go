package store

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	// The replay path runs the engine, which logs through slog.Default.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

// createTestStore creates a store backed by a fresh database file.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun builds a run record with a placeholder document.
func createTestRun(id string, seed uint64, iterations int) Run {
	return Run{
		ID:          id,
		Fingerprint: "fp-" + id,
		Document:    []byte(`{"nodes": []}`),
		Seed:        seed,
		Iterations:  iterations,
		CreatedAt:   time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC),
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"runs", "moves", "samples"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	checks := map[string]string{
		"journal_mode": "wal",
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, expected := range checks {
		if err := s.verifyPragma(name, expected); err != nil {
			t.Errorf("pragma check failed: %v", err)
		}
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, expected %d", version, currentSchemaVersion)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// A seed above 1<<63 exercises the signed-integer cast.
	run := createTestRun("run-1", 1<<63+12345, 200)
	run.Document = []byte(`{"comment": "round trip", "nodes": []}`)

	if err := s.WriteRun(ctx, run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}

	if got.ID != run.ID {
		t.Errorf("ID = %q, expected %q", got.ID, run.ID)
	}
	if got.Fingerprint != run.Fingerprint {
		t.Errorf("Fingerprint = %q, expected %q", got.Fingerprint, run.Fingerprint)
	}
	if string(got.Document) != string(run.Document) {
		t.Errorf("Document = %s, expected %s", got.Document, run.Document)
	}
	if got.Seed != run.Seed {
		t.Errorf("Seed = %d, expected %d", got.Seed, run.Seed)
	}
	if got.Iterations != run.Iterations {
		t.Errorf("Iterations = %d, expected %d", got.Iterations, run.Iterations)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("CreatedAt = %v, expected %v", got.CreatedAt, run.CreatedAt)
	}
}

func TestWriteRun_IdempotentOnID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestRun("run-1", 1, 10)
	if err := s.WriteRun(ctx, first); err != nil {
		t.Fatalf("first WriteRun() failed: %v", err)
	}

	second := createTestRun("run-1", 2, 20)
	second.Fingerprint = "altered"
	if err := s.WriteRun(ctx, second); err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Fingerprint != first.Fingerprint || got.Seed != first.Seed {
		t.Errorf("duplicate insert overwrote the original run: %+v", got)
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListRuns_OrdersByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Insert out of order; UUIDv7 ids sort lexically by creation time,
	// so listing must come back in id order.
	for _, id := range []string{"run-b", "run-a", "run-c"} {
		if err := s.WriteRun(ctx, createTestRun(id, 1, 10)); err != nil {
			t.Fatalf("WriteRun(%q) failed: %v", id, err)
		}
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, expected 3", len(runs))
	}
	for i, expected := range []string{"run-a", "run-b", "run-c"} {
		if runs[i].ID != expected {
			t.Errorf("runs[%d].ID = %q, expected %q", i, runs[i].ID, expected)
		}
	}
}

func TestListRuns_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if runs == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestFindRunsByFingerprint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := createTestRun("run-a", 1, 10)
	a.Fingerprint = "shared"
	b := createTestRun("run-b", 1, 10)
	b.Fingerprint = "shared"
	c := createTestRun("run-c", 2, 10)
	c.Fingerprint = "other"
	for _, run := range []Run{b, a, c} {
		if err := s.WriteRun(ctx, run); err != nil {
			t.Fatalf("WriteRun(%q) failed: %v", run.ID, err)
		}
	}

	runs, err := s.FindRunsByFingerprint(ctx, "shared")
	if err != nil {
		t.Fatalf("FindRunsByFingerprint() failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-a" || runs[1].ID != "run-b" {
		t.Errorf("unexpected result: %+v", runs)
	}

	none, err := s.FindRunsByFingerprint(ctx, "unknown")
	if err != nil {
		t.Fatalf("FindRunsByFingerprint(unknown) failed: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty slice, got %v", none)
	}
}

func TestReadMoves_EmptyRun(t *testing.T) {
	s := createTestStore(t)

	moves, err := s.ReadMoves(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ReadMoves() failed: %v", err)
	}
	if moves == nil || len(moves) != 0 {
		t.Errorf("expected empty slice, got %v", moves)
	}
}

func TestReadSamples_EmptyRun(t *testing.T) {
	s := createTestStore(t)

	rows, err := s.ReadSamples(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ReadSamples() failed: %v", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("expected empty slice, got %v", rows)
	}
}

func TestNewRunID_Ordered(t *testing.T) {
	a := NewRunID()
	time.Sleep(2 * time.Millisecond)
	b := NewRunID()

	if a == b {
		t.Fatalf("consecutive ids collided: %q", a)
	}
	// V7 ids embed a millisecond timestamp in the high bits.
	if !(a < b) {
		t.Errorf("ids not time-ordered: %q then %q", a, b)
	}
}
