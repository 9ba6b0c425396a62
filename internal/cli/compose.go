package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/compositor"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/naming"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/template"
)

// composeOptions holds options for the compose command.
type composeOptions struct {
	templatePath string
	sourcePath   string
	outPath      string
	trace        bool
}

// newComposeCmd creates the compose command.
func (a *App) newComposeCmd() *cobra.Command {
	opts := &composeOptions{}

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Build a cover spread from a source PDF",
		Long: `Build a cover spread from a source PDF with at least 17 pages.

The output name defaults to the source name with export timestamps removed
and a cover_ prefix, written to the current directory. Use --out - to write
the PDF to standard output.

Examples:
  coverspread compose --source Yearbook_20250612_101500.pdf
  coverspread compose --template cover.pdf --source book.pdf --out spread.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.compose(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.templatePath, "template", "t", "", "Cover template PDF (defaults to template.path from the configuration)")
	cmd.Flags().StringVarP(&opts.sourcePath, "source", "s", "", "Source PDF (required)")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "Output PDF, or - for standard output")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "Print the stages the composition went through")

	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func (a *App) compose(opts *composeOptions) error {
	cfg, logger, err := a.setup()
	if err != nil {
		return err
	}

	templatePath := opts.templatePath
	if templatePath == "" {
		templatePath = cfg.Template.Path
	}
	store, err := template.Open(templatePath)
	if err != nil {
		logDetails(logger, err)
		return fmt.Errorf("failed to open template: %w", err)
	}
	defer store.Close()

	source, err := os.ReadFile(opts.sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}

	c, err := compositor.New(cfg.Geometry, compositor.WithLogger(logger))
	if err != nil {
		return err
	}

	out, trace, err := c.ComposeTrace(store.Bytes(), source)
	if opts.trace {
		fmt.Fprintf(a.stderr, "stages: %s\n", strings.Join(trace.Strings(), " > "))
	}
	if err != nil {
		logDetails(logger, err)
		return err
	}

	outPath := opts.outPath
	if outPath == "" {
		outPath = naming.CoverName(filepath.Base(opts.sourcePath))
	}
	if outPath == "-" {
		_, err := a.stdout.Write(out)
		return err
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(a.stdout, "wrote %s (%d bytes)\n", outPath, len(out))
	return nil
}
