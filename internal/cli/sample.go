package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/minibayes/minibayes/internal/engine"
	"github.com/minibayes/minibayes/internal/model"
	"github.com/minibayes/minibayes/internal/store"
)

// SampleOptions holds flags for the sample command.
type SampleOptions struct {
	*RootOptions
	Seed       uint64
	Iterations int
	BurnIn     int
	Config     string
	Database   string
}

// RunConfig mirrors the sample flags in a YAML run config file. Fields
// are pointers so an explicit zero in the file is distinguishable from
// an absent field.
type RunConfig struct {
	Seed       *uint64 `yaml:"seed"`
	Iterations *int    `yaml:"iterations"`
	BurnIn     *int    `yaml:"burn_in"`
}

// QuerySummary is the moment report for one query.
type QuerySummary struct {
	Query  int     `json:"query"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// SampleResult holds the outcome of a sampling run.
type SampleResult struct {
	Graph           string         `json:"graph"`
	Seed            uint64         `json:"seed"`
	Draws           int            `json:"draws"`
	BurnIn          int            `json:"burn_in"`
	TotalIterations int            `json:"total_iterations"`
	Acceptance      float64        `json:"acceptance"`
	Summaries       []QuerySummary `json:"summaries"`
	RunID           string         `json:"run_id,omitempty"`
	Fingerprint     string         `json:"fingerprint,omitempty"`
}

// NewSampleCommand creates the sample command.
func NewSampleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SampleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sample <graph.json>",
		Short: "Draw posterior samples from a graph document",
		Long: `Run single-site inference over a graph document and report posterior
moments for every query.

Burn-in sweeps run before the requested draws; they are recorded with the
run but excluded from the reported moments. With --db the whole run
(document, seed, every accept/reject decision, every sample row) is
recorded to SQLite in one transaction, ready for show and replay.

Flags may also come from a YAML config file; explicit flags win.

Examples:
  minibayes sample model.json --seed 42 --iterations 5000
  minibayes sample model.json --burn-in 500 --db runs.db
  minibayes sample model.json --config run.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(opts, args[0], cmd)
		},
	}

	cmd.Flags().Uint64Var(&opts.Seed, "seed", engine.DefaultSeed, "random seed")
	cmd.Flags().IntVar(&opts.Iterations, "iterations", 1000, "posterior draws to collect")
	cmd.Flags().IntVar(&opts.BurnIn, "burn-in", 0, "sweeps to run before collecting")
	cmd.Flags().StringVar(&opts.Config, "config", "", "YAML run config file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run to this SQLite database")

	return cmd
}

func runSample(opts *SampleOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Configure logging based on verbose flag. Logs go to stderr so JSON
	// output stays parseable.
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	if opts.Config != "" {
		if err := applyRunConfig(opts, cmd); err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "loading run config", err)
		}
	}
	if opts.Iterations <= 0 {
		msg := fmt.Sprintf("iterations must be positive, got %d", opts.Iterations)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if opts.BurnIn < 0 {
		msg := fmt.Sprintf("burn-in must be non-negative, got %d", opts.BurnIn)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	total := opts.BurnIn + opts.Iterations

	loaded, err := LoadGraph(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, loadErr.Details)
			return NewExitError(ExitCommandError, loadErr.Error())
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	engOpts := []engine.EngineOption{
		engine.WithSeed(opts.Seed),
		engine.WithLogger(logger),
	}

	// Optional run recording. The recorder buffers in memory and commits
	// after the run, so an interrupted run leaves the database untouched.
	var (
		st  *store.Store
		rec *store.Recorder
		run store.Run
	)
	if opts.Database != "" {
		fingerprint, err := model.Fingerprint(loaded.Document, opts.Seed, total)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "fingerprinting run", err)
		}
		st, err = store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "opening database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("closing database", "error", closeErr)
			}
		}()

		run = store.Run{
			ID:          store.NewRunID(),
			Fingerprint: fingerprint,
			Document:    loaded.Raw,
			Seed:        opts.Seed,
			Iterations:  total,
			CreatedAt:   time.Now().UTC(),
		}
		rec = st.NewRecorder(run)
		engOpts = append(engOpts, engine.WithObserver(rec))
	}

	eng, err := engine.New(loaded.Graph, engOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot sample this graph", err)
	}

	// Graceful shutdown on interrupt. A cancelled run reports nothing and
	// records nothing.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := eng.Infer(ctx, total)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintln(formatter.GetErrWriter(), "sampling interrupted; nothing recorded")
			return nil
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "sampling failed", err)
	}

	if rec != nil {
		if err := rec.Commit(ctx); err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "recording run", err)
		}
		logger.Info("run recorded", "id", run.ID, "db", opts.Database)
	}

	result := SampleResult{
		Graph:           path,
		Seed:            opts.Seed,
		Draws:           opts.Iterations,
		BurnIn:          opts.BurnIn,
		TotalIterations: total,
		Acceptance:      overallAcceptance(res),
	}
	for _, s := range res.SummariesAfter(opts.BurnIn) {
		result.Summaries = append(result.Summaries, QuerySummary{
			Query:  s.QueryIndex,
			Mean:   s.Mean,
			StdDev: s.StdDev,
		})
	}
	if rec != nil {
		result.RunID = run.ID
		result.Fingerprint = run.Fingerprint
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	outputSampleText(formatter, result)
	return nil
}

// applyRunConfig merges the YAML config into opts. Flags the user set
// explicitly keep their values.
func applyRunConfig(opts *SampleOptions, cmd *cobra.Command) error {
	data, err := os.ReadFile(opts.Config)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}

	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields (catches typos)
	if err := decoder.Decode(&cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", opts.Config, err)
	}

	if cfg.Seed != nil && !cmd.Flags().Changed("seed") {
		opts.Seed = *cfg.Seed
	}
	if cfg.Iterations != nil && !cmd.Flags().Changed("iterations") {
		opts.Iterations = *cfg.Iterations
	}
	if cfg.BurnIn != nil && !cmd.Flags().Changed("burn-in") {
		opts.BurnIn = *cfg.BurnIn
	}
	return nil
}

// overallAcceptance pools accept/reject counts across every latent.
func overallAcceptance(res *engine.Result) float64 {
	attempts, accepted := 0, 0
	for _, a := range res.Acceptance {
		attempts += a.Attempts
		accepted += a.Accepted
	}
	if attempts == 0 {
		return 0
	}
	return float64(accepted) / float64(attempts)
}

func outputSampleText(formatter *OutputFormatter, result SampleResult) {
	w := formatter.Writer

	fmt.Fprintf(w, "Sampled %d draw(s) from %s (burn-in %d, seed %d)\n",
		result.Draws, result.Graph, result.BurnIn, result.Seed)
	fmt.Fprintln(w)

	if len(result.Summaries) == 0 {
		fmt.Fprintln(w, "  no queries declared")
	} else {
		fmt.Fprintf(w, "  %5s  %12s  %12s\n", "query", "mean", "stddev")
		for _, s := range result.Summaries {
			fmt.Fprintf(w, "  %5d  %12.6f  %12.6f\n", s.Query, s.Mean, s.StdDev)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Acceptance rate: %.1f%%\n", result.Acceptance*100)
	if result.RunID != "" {
		fmt.Fprintf(w, "Recorded run %s\n", result.RunID)
		fmt.Fprintf(w, "Fingerprint  %s\n", result.Fingerprint)
	}
}
