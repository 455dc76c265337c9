package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogsheet/internal/core"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "schema",
		Short:         "Print the compiled column model",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rootOpts.load()
			if err != nil {
				return err
			}
			model, err := e.service.CompileSchema(cmd.Context(), e.scope)
			if err != nil {
				return err
			}
			return printSchema(cmd.OutOrStdout(), rootOpts.Format, model)
		},
	}
}

func printSchema(w io.Writer, format string, model *core.Model) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(model.Columns())
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tSAVE NAME\tTIER\tFORMAT")
	for _, col := range model.Columns() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", col.DisplayName, col.SaveName(), col.Tier(), col.Validation.Format)
	}
	return tw.Flush()
}
