package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogsheet/internal/core"
	"github.com/JonMunkholm/catalogsheet/internal/flatfile"
	"github.com/JonMunkholm/catalogsheet/internal/xlsxgrid"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	Commit bool
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:           "parse <sheet.csv|sheet.xlsx>",
		Short:         "Reconcile a filled-in sheet against the fixture catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Commit, "commit", false, "save modified records into the in-memory catalog and report the count")

	return cmd
}

// parseOutput is the JSON form of a parse.
type parseOutput struct {
	*core.ParseResult
	Saved int `json:"saved"`
}

func runParse(cmd *cobra.Command, rootOpts *RootOptions, opts *ParseOptions, path string) error {
	e, err := rootOpts.load()
	if err != nil {
		return err
	}

	src, closeSrc, err := openSheet(path, e.cfg.Parse.MaxFileSize)
	if err != nil {
		return err
	}
	defer closeSrc()

	result, err := e.service.ParseSheet(cmd.Context(), e.scope, src)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out := parseOutput{ParseResult: result}
	if opts.Commit {
		if out.Saved, err = e.service.SaveResults(cmd.Context(), result.Results); err != nil {
			return err
		}
	}
	return printParse(cmd.OutOrStdout(), rootOpts.Format, out)
}

// openSheet picks the row source by file extension.
func openSheet(path string, maxBytes int64) (core.RowSource, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return flatfile.NewSource(f, maxBytes), func() { f.Close() }, nil
	case ".tsv":
		return flatfile.NewSource(f, maxBytes, flatfile.WithDelimiter('\t')), func() { f.Close() }, nil
	case ".xlsx":
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		src, err := xlsxgrid.Open(f, info.Size())
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return src, func() { src.Close(); f.Close() }, nil
	default:
		f.Close()
		return nil, nil, fmt.Errorf("%w: %q", core.ErrUnsupportedFile, filepath.Ext(path))
	}
}

func printParse(w io.Writer, format string, out parseOutput) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSKU\tEXISTING\tMODIFIED\tEMPTY\tISSUES")
	for _, r := range out.Results {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%t\t%t\t%d\n", r.Row, r.Record.SKU(), r.HasExistingItem, r.Modified, r.EmptyRow, len(r.Record.Compliance))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d reconciled, %d unchanged, %d saved in %s\n",
		len(out.Results), out.Unchanged, out.Saved, out.Duration)
	return err
}
