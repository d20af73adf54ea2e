package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/loadout/internal/ir"
)

// EnvDatabase names the environment variable that supplies the default
// snapshot database path.
const EnvDatabase = "LOADOUT_DB"

// DefaultDatabase is used when neither --db nor LOADOUT_DB is set.
const DefaultDatabase = "loadout.db"

// DefaultCatalogDir is used when neither --catalog nor --catalog-url is set.
const DefaultCatalogDir = "catalog"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose          bool
	Format           string // "json" | "text"
	Database         string
	CatalogDir       string
	CatalogURL       string
	Anchor           string
	PermissiveAnchor bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the loadout CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "loadout",
		Short: "loadout - compose agent configurations from a catalog",
		Long: `Select models, rules, a role, and commands from a catalog, compose them
into a configuration document, and keep named snapshots of the result.`,
		Version:       ir.ToolVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "snapshot database path (default $"+EnvDatabase+" or "+DefaultDatabase+")")
	cmd.PersistentFlags().StringVar(&opts.CatalogDir, "catalog", "", "catalog directory (default "+DefaultCatalogDir+")")
	cmd.PersistentFlags().StringVar(&opts.CatalogURL, "catalog-url", "", "catalog HTTP base URL (overrides --catalog)")
	cmd.PersistentFlags().StringVar(&opts.Anchor, "anchor", ir.DefaultAnchorID, "anchor model id")
	cmd.PersistentFlags().BoolVar(&opts.PermissiveAnchor, "permissive-anchor", false, "allow anchor rules to be deselected")

	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewComposeCommand(opts))
	cmd.AddCommand(NewSnapshotsCommand(opts))
	cmd.AddCommand(NewScenarioCommand(opts))

	return cmd
}

// setupLogging installs the process-wide slog handler on w.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// databasePath resolves --db, then LOADOUT_DB, then the default.
func (o *RootOptions) databasePath() string {
	if o.Database != "" {
		return o.Database
	}
	if env := os.Getenv(EnvDatabase); env != "" {
		return env
	}
	return DefaultDatabase
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
