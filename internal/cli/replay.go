package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ReplayReport holds the outcome of a replay verification.
type ReplayReport struct {
	RunID          string `json:"run_id"`
	Fingerprint    string `json:"fingerprint"`
	Iterations     int    `json:"iterations"`
	MovesChecked   int    `json:"moves_checked"`
	SamplesChecked int    `json:"samples_checked"`
	Verified       bool   `json:"verified"`
	Divergence     string `json:"divergence,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <db> <run-id>",
		Short: "Re-run a recorded run and verify it reproduces",
		Long: `Re-run a recorded run from its stored document and seed, and verify
the recorded moves and samples reproduce exactly.

The stored fingerprint is checked against the stored inputs first, so a
record altered after the fact is caught before any re-execution. Then the
replayed decision stream is compared move-for-move and the replayed draws
sample-for-sample against the recorded rows.

Exit codes:
  0 - Run reproduced exactly
  1 - Divergence detected
  2 - Command error (database or run not found)

Examples:
  minibayes replay runs.db 0190e7a2-4c1d-7b30-a2f1-9d6c1e88f3ab
  minibayes replay runs.db 0190e7a2-4c1d-7b30-a2f1-9d6c1e88f3ab --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runReplay(opts *RootOptions, dbPath, runID string, cmd *cobra.Command) error {
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

	res, err := st.Replay(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg := fmt.Sprintf("run %s not found", runID)
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "replaying run", err)
	}

	report := ReplayReport{
		RunID:          res.RunID,
		Fingerprint:    res.Fingerprint,
		Iterations:     res.Iterations,
		MovesChecked:   res.MovesChecked,
		SamplesChecked: res.SamplesChecked,
		Verified:       res.Verified,
	}
	if res.Divergence != nil {
		report.Divergence = res.Divergence.String()
	}

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: report}
		if !report.Verified {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_DIVERGENCE",
				Message: report.Divergence,
			}
		}
		if err := encodeResponse(formatter, response); err != nil {
			return err
		}
		if !report.Verified {
			return NewExitError(ExitFailure, "replay diverged")
		}
		return nil
	}

	w := formatter.Writer
	if report.Verified {
		fmt.Fprintf(w, "✓ run %s replayed deterministically\n", report.RunID)
		fmt.Fprintf(w, "  %d iteration(s), %d move(s), %d sample row(s) verified\n",
			report.Iterations, report.MovesChecked, report.SamplesChecked)
		return nil
	}

	fmt.Fprintf(w, "✗ run %s diverged on replay\n", report.RunID)
	fmt.Fprintf(w, "  %s\n", report.Divergence)
	return NewExitError(ExitFailure, "replay diverged")
}
