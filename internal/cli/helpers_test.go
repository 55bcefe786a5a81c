package cli

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// The replay path runs the engine through the store, which logs through
// slog.Default.
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

// conjugateDocument is a hand-written normal-normal model: a N(0, 1)
// latent observed at 1.0 with unit noise, plus one query on the latent.
// Its posterior is N(0.5, 1/sqrt(2)).
const conjugateDocument = `{
  "comment": "normal-normal model",
  "nodes": [
    {"sequence": 0, "operator": "CONSTANT", "value": 0},
    {"sequence": 1, "operator": "CONSTANT", "value": 1},
    {"sequence": 2, "operator": "DISTRIBUTION_NORMAL", "in_nodes": [0, 1]},
    {"sequence": 3, "operator": "SAMPLE", "in_nodes": [2]},
    {"sequence": 4, "operator": "DISTRIBUTION_NORMAL", "in_nodes": [3, 1]},
    {"sequence": 5, "operator": "CONSTANT", "value": 1.0},
    {"sequence": 6, "operator": "OBSERVE", "in_nodes": [4, 5]},
    {"sequence": 7, "operator": "QUERY", "in_node": 3, "query_index": 0}
  ]
}`

// writeFixture writes content to a fresh temp file and returns its path.
func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// executeRoot runs the full command tree with args and captures stdout.
// Diagnostic output on stderr is discarded.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
