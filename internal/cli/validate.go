package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minibayes/minibayes/internal/model"
)

// ValidationResult holds validation results for a graph document.
type ValidationResult struct {
	Valid        bool                  `json:"valid"`
	Nodes        int                   `json:"nodes"`
	Latents      int                   `json:"latents"`
	Observations int                   `json:"observations"`
	Queries      int                   `json:"queries"`
	Errors       []model.DocumentError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph.json>",
		Short: "Validate a graph document without sampling",
		Long: `Validate a graph document without running inference.

Checks the JSON shape against the document schema, maps operator and type
names, and runs full structural validation (sequence numbering, arity,
operand types, query indexing). Reports every problem it can find.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	res, err := LoadGraph(path)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			switch loadErr.Code {
			case ErrCodeDocument, ErrCodeStructural:
				return outputValidationErrors(formatter, loadErr.Details, loadErr.Message)
			default:
				_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
				return NewExitError(ExitCommandError, loadErr.Error())
			}
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitCommandError, err.Error())
	}

	g := res.Graph
	formatter.VerboseLog("Loaded %d node(s) from %s", g.Len(), path)

	result := ValidationResult{
		Valid:        true,
		Nodes:        g.Len(),
		Latents:      len(g.Samples()),
		Observations: len(g.Observations()),
		Queries:      len(g.Queries()),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ graph valid: %d node(s), %d latent(s), %d observation(s), %d quer%s\n",
		result.Nodes, result.Latents, result.Observations, result.Queries, plural(result.Queries, "y", "ies"))
	return nil
}

// outputValidationErrors reports every collected problem and fails with
// the validation exit code.
func outputValidationErrors(formatter *OutputFormatter, errs []model.DocumentError, message string) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:  false,
			Errors: errs,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeDocument,
				Message: message,
			},
		}
		if len(errs) > 0 {
			response.Error.Code = errs[0].Code
		}

		if err := encodeResponse(formatter, response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range errs {
		if e.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s (%s)\n", e.Code, e.Message, e.Field)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
