package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationSummary is the payload of a successful validate run.
type ValidationSummary struct {
	Valid     bool     `json:"valid"`
	Relations []string `json:"relations"`
	Sides     int      `json:"sides"`
	SpecHash  string   `json:"spec_hash"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <relations-dir>",
		Short: "Validate CUE relation declarations",
		Long: `Validate CUE relation declarations without writing output.

Every error is reported with its code. Exit codes:
  0 - Declarations are valid
  1 - Declarations are invalid
  2 - Command error (directory not found, no CUE files, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadRelations(dir)
	if loadResult == nil {
		return outputLoadError(formatter, loadErrors[0])
	}

	if len(loadErrors) > 0 {
		return outputValidationErrors(formatter, loadErrors)
	}

	summary := ValidationSummary{Valid: true, SpecHash: loadResult.SpecHash}
	for _, rel := range loadResult.Relations {
		summary.Relations = append(summary.Relations, rel.Name)
		summary.Sides += len(rel.Sides())
	}

	if formatter.Format == "json" {
		return formatter.Success(summary)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d relation(s), %d side(s) valid\n", len(summary.Relations), summary.Sides)
	for _, rel := range loadResult.Relations {
		formatter.VerboseLog("  %s", describeRelation(rel))
	}
	return nil
}

// outputValidationErrors reports invalid declarations (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, errs []error) error {
	cliErrors := make([]CLIError, len(errs))
	for i, err := range errs {
		code, message := parseCompileError(err)
		cliErrors[i] = CLIError{Code: code, Message: message}
	}

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   ValidationSummary{Valid: false},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %d validation error(s)\n", len(errs))
		for _, e := range cliErrors {
			fmt.Fprintf(formatter.Writer, "  [%s] %s\n", e.Code, e.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
