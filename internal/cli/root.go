package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats lists the supported output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the minibayes CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "minibayes",
		Short: "minibayes - Bayesian inference over graph models",
		Long: `A single-site Markov chain sampler for probabilistic graph models.

Models are JSON documents of numbered nodes: constants, arithmetic
operators, distributions, samples, observations, and queries. The sampler
draws from the posterior with gradient-informed proposals, optionally
records whole runs to SQLite, and verifies recorded runs by deterministic
replay.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSampleCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}

// isValidFormat reports whether format names a supported output mode.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
