package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/minibayes/minibayes/internal/store"
)

// RunInfo is the listing view of one recorded run.
type RunInfo struct {
	ID          string `json:"id"`
	Fingerprint string `json:"fingerprint"`
	Seed        uint64 `json:"seed"`
	Iterations  int    `json:"iterations"`
	CreatedAt   string `json:"created_at"`
}

// RunListing holds the output of the listing mode.
type RunListing struct {
	Database string    `json:"database"`
	Total    int       `json:"total"`
	Runs     []RunInfo `json:"runs"`
}

// RunDetail holds the output of the single-run mode: the run row plus
// moments recomputed from the stored sample rows.
type RunDetail struct {
	RunInfo
	Moves     int             `json:"moves"`
	Summaries []QuerySummary  `json:"summaries"`
	Document  json.RawMessage `json:"document,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <db> [run-id]",
		Short: "List recorded runs or inspect one",
		Long: `List the runs recorded in a database, or inspect a single run.

Without a run id, prints every recorded run oldest first. With a run id,
prints the run's parameters and posterior moments recomputed from its
stored sample rows.

Examples:
  minibayes show runs.db
  minibayes show runs.db 0190e7a2-4c1d-7b30-a2f1-9d6c1e88f3ab
  minibayes show runs.db --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 2 {
				runID = args[1]
			}
			return runShow(rootOpts, args[0], runID, cmd)
		},
	}

	return cmd
}

func runShow(opts *RootOptions, dbPath, runID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openExisting(dbPath)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Error())
		}
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if runID == "" {
		return showListing(ctx, formatter, st, dbPath)
	}
	return showDetail(ctx, formatter, st, runID)
}

// openExisting opens a database that must already exist. Open would
// happily create an empty one, which turns a typo into a confusing
// "no runs found".
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("database not found: %s", path)}
	}
	return store.Open(path)
}

func showListing(ctx context.Context, formatter *OutputFormatter, st *store.Store, dbPath string) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing runs", err)
	}

	listing := RunListing{
		Database: dbPath,
		Total:    len(runs),
		Runs:     make([]RunInfo, 0, len(runs)),
	}
	for _, r := range runs {
		listing.Runs = append(listing.Runs, runInfo(r))
	}

	if formatter.Format == "json" {
		return formatter.Success(listing)
	}

	fmt.Fprintf(formatter.Writer, "%d run(s) in %s\n", listing.Total, dbPath)
	for _, r := range listing.Runs {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintf(formatter.Writer, "  %s\n", r.ID)
		fmt.Fprintf(formatter.Writer, "    seed %d, %d iteration(s), created %s\n", r.Seed, r.Iterations, r.CreatedAt)
		fmt.Fprintf(formatter.Writer, "    fingerprint %s\n", r.Fingerprint)
	}
	return nil
}

func showDetail(ctx context.Context, formatter *OutputFormatter, st *store.Store, runID string) error {
	run, err := st.ReadRun(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg := fmt.Sprintf("run %s not found", runID)
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading run", err)
	}

	moves, err := st.ReadMoves(ctx, runID)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading moves", err)
	}
	rows, err := st.ReadSamples(ctx, runID)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading samples", err)
	}

	detail := RunDetail{
		RunInfo:   runInfo(run),
		Moves:     len(moves),
		Summaries: storedSummaries(rows),
	}
	if formatter.Format == "json" {
		detail.Document = json.RawMessage(run.Document)
		return formatter.Success(detail)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s\n", detail.ID)
	fmt.Fprintf(w, "  created      %s\n", detail.CreatedAt)
	fmt.Fprintf(w, "  seed         %d\n", detail.Seed)
	fmt.Fprintf(w, "  iterations   %d\n", detail.Iterations)
	fmt.Fprintf(w, "  moves        %d\n", detail.Moves)
	fmt.Fprintf(w, "  fingerprint  %s\n", detail.Fingerprint)
	fmt.Fprintln(w)

	if len(detail.Summaries) == 0 {
		fmt.Fprintln(w, "  no sample rows recorded")
		return nil
	}
	fmt.Fprintf(w, "  %5s  %12s  %12s\n", "query", "mean", "stddev")
	for _, s := range detail.Summaries {
		fmt.Fprintf(w, "  %5d  %12.6f  %12.6f\n", s.Query, s.Mean, s.StdDev)
	}
	return nil
}

func runInfo(r store.Run) RunInfo {
	return RunInfo{
		ID:          r.ID,
		Fingerprint: r.Fingerprint,
		Seed:        r.Seed,
		Iterations:  r.Iterations,
		CreatedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// storedSummaries recomputes per-query moments from stored sample rows.
func storedSummaries(rows []store.SampleRow) []QuerySummary {
	if len(rows) == 0 {
		return nil
	}
	queries := len(rows[0].Values)
	out := make([]QuerySummary, 0, queries)
	for q := 0; q < queries; q++ {
		draws := make([]float64, len(rows))
		for i, row := range rows {
			draws[i] = row.Values[q]
		}
		out = append(out, QuerySummary{
			Query:  q,
			Mean:   stat.Mean(draws, nil),
			StdDev: stat.StdDev(draws, nil),
		})
	}
	return out
}
