package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogsheet/internal/xlsxgrid"
)

// TemplateOptions holds flags for the template command.
type TemplateOptions struct {
	Output      string
	SKUs        []string
	WithCatalog bool
}

// NewTemplateCommand creates the template command.
func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplateOptions{}

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write an xlsx template, optionally filled with catalog records",
		Long: `Compile the column model for the scope and write it as an xlsx workbook.

Without --sku or --with-catalog the workbook is an empty template. With them
it is a live sheet: each record row carries a hidden fingerprint so parsing
the sheet later skips rows that were not edited.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplate(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringSliceVar(&opts.SKUs, "sku", nil, "catalog SKUs to include")
	cmd.Flags().BoolVar(&opts.WithCatalog, "with-catalog", false, "include every catalog record of the fixture")

	return cmd
}

func runTemplate(cmd *cobra.Command, rootOpts *RootOptions, opts *TemplateOptions) error {
	e, err := rootOpts.load()
	if err != nil {
		return err
	}

	skus := opts.SKUs
	if opts.WithCatalog {
		skus = e.set.SKUs()
	}
	if limit := e.cfg.Render.MaxSKUs; len(skus) > limit {
		return fmt.Errorf("%d SKUs requested, at most %d can be exported at once", len(skus), limit)
	}

	grid, _, err := e.service.RenderSheet(cmd.Context(), e.scope, skus)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if err := xlsxgrid.Write(w, grid, xlsxgrid.Options{ValidationRows: e.service.ValidationRows()}); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	slog.Info("template written",
		"scope", e.scope.Key(),
		"columns", len(grid.Headers),
		"rows", len(grid.Rows),
		"output", opts.Output,
	)
	return nil
}
