// Package cli implements the sheetctl command line tool. Commands run the
// catalog sheet service against a YAML fixture instead of a database.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalogsheet/internal/config"
	"github.com/JonMunkholm/catalogsheet/internal/core"
	"github.com/JonMunkholm/catalogsheet/internal/fixture"
	"github.com/JonMunkholm/catalogsheet/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Fixture  string
	LogLevel string
	Format   string // "json" | "text"

	Supplier string
	Retailer string
	Category string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for sheetctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "sheetctl",
		Short: "Compile catalog spreadsheet templates and parse filled-in sheets",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			// stdout carries results, logs go to stderr
			logging.SetupWriter(cmd.ErrOrStderr(), opts.LogLevel, "text")
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.Fixture, "fixture", "f", "", "YAML fixture with rules, catalog and warehouses (required)")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Supplier, "supplier", "", "supplier id (default: fixture scope)")
	flags.StringVar(&opts.Retailer, "retailer", "", "retailer id (default: fixture scope)")
	flags.StringVar(&opts.Category, "category", "", "category id (default: fixture scope)")
	_ = cmd.MarkPersistentFlagRequired("fixture")

	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTemplateCommand(opts))
	cmd.AddCommand(NewParseCommand(opts))

	return cmd
}

// env is what every command works with.
type env struct {
	set     *fixture.Set
	service *core.Service
	scope   core.Scope
	cfg     *config.Config
}

func (o *RootOptions) load() (*env, error) {
	set, err := fixture.Load(o.Fixture)
	if err != nil {
		return nil, err
	}
	cfg := config.Defaults()
	svc, err := core.NewService(set.Sources(), cfg)
	if err != nil {
		return nil, err
	}
	return &env{set: set, service: svc, scope: o.scope(set.Scope()), cfg: cfg}, nil
}

// scope applies the scope flags over the fixture's scope.
func (o *RootOptions) scope(base core.Scope) core.Scope {
	if o.Supplier != "" {
		base.SupplierID = o.Supplier
	}
	if o.Retailer != "" {
		base.RetailerID = o.Retailer
	}
	if o.Category != "" {
		base.CategoryID = o.Category
	}
	return base
}
