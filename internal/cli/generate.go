package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/relsync/internal/compiler"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Package string
	Output  string
}

// GenerateSummary is the payload of a successful generate run.
type GenerateSummary struct {
	Package   string `json:"package"`
	Output    string `json:"output,omitempty"`
	Relations int    `json:"relations"`
	SpecHash  string `json:"spec_hash"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <relations-dir>",
		Short: "Generate Go relation descriptors",
		Long: `Generate a Go file declaring one marker type, one descriptor and one
variable per side for every declared relation, plus a Register function.

Without --output the source is written to stdout.

Examples:
  relsync generate ./relations --package lineage -o lineage/relations_gen.go
  relsync generate ./relations --package social`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Package, "package", "", "Go package name (required)")
	_ = cmd.MarkFlagRequired("package")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runGenerate(opts *GenerateOptions, dir string, cmd *cobra.Command) error {
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
		return outputCompileErrors(formatter, loadErrors)
	}

	src, err := compiler.GenerateGo(opts.Package, loadResult.Relations)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(src)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, err.Error())
	}
	if err := os.WriteFile(opts.Output, src, 0o644); err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, err.Error())
	}

	opts.logger().Info("descriptors generated", "package", opts.Package, "output", opts.Output, "relations", len(loadResult.Relations))

	if formatter.Format == "json" {
		return formatter.Success(GenerateSummary{
			Package:   opts.Package,
			Output:    opts.Output,
			Relations: len(loadResult.Relations),
			SpecHash:  loadResult.SpecHash,
		})
	}
	fmt.Fprintf(formatter.Writer, "✓ Generated %d relation(s) in package %s\n", len(loadResult.Relations), opts.Package)
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", opts.Output)
	return nil
}
