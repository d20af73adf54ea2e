package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/session"
	"github.com/roach88/loadout/internal/store"
)

// displayTime is the timestamp layout for text output.
const displayTime = "2006-01-02 15:04:05"

// NewSnapshotsCommand creates the snapshots command and its subcommands.
func NewSnapshotsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshots",
		Aliases: []string{"snap"},
		Short:   "Manage saved configuration snapshots",
		Example: `  loadout snapshots list
  loadout snapshots export 0192f3c4-... --dir ./out
  loadout snapshots import ./config.json --name "from laptop"
  loadout snapshots restore`,
	}

	cmd.AddCommand(
		newSnapshotsListCommand(rootOpts),
		newSnapshotsShowCommand(rootOpts),
		newSnapshotsRenameCommand(rootOpts),
		newSnapshotsDeleteCommand(rootOpts),
		newSnapshotsExportCommand(rootOpts),
		newSnapshotsImportCommand(rootOpts),
		newSnapshotsRestoreCommand(rootOpts),
		newSnapshotsStatsCommand(rootOpts),
		newSnapshotsLoadCommand(rootOpts),
	)
	return cmd
}

// snapshotSummary is the list view of a record, without its payload.
type snapshotSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Models      []string  `json:"models"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func summarize(rec store.Record) snapshotSummary {
	return snapshotSummary{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Models:      rec.Payload.ModelIDs(),
		Size:        rec.Size,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func newSnapshotsListCommand(rootOpts *RootOptions) *cobra.Command {
	var byCreation bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return rootOpts.withStore(func(st *store.Store) error {
				list := st.ListSorted
				if byCreation {
					list = st.List
				}
				recs, err := list(cmd.Context())
				if err != nil {
					return f.fail("list snapshots", err)
				}

				summaries := make([]snapshotSummary, 0, len(recs))
				for _, rec := range recs {
					summaries = append(summaries, summarize(rec))
				}
				if f.Format == "json" {
					return f.Success(summaries)
				}
				if len(summaries) == 0 {
					fmt.Fprintln(f.Writer, "No snapshots.")
					return nil
				}
				rows := make([][]any, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []any{
						s.ID,
						s.Name,
						fmt.Sprintf("%d", len(s.Models)),
						s.UpdatedAt.Local().Format(displayTime),
					})
				}
				f.Table([]any{"ID", "Name", "Models", "Updated"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&byCreation, "by-creation", false, "order by creation time, oldest first")
	return cmd
}

func newSnapshotsShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a snapshot's document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return rootOpts.withStore(func(st *store.Store) error {
				if f.Format == "json" {
					rec, err := st.Get(cmd.Context(), args[0])
					if err != nil {
						return f.fail("show snapshot", err)
					}
					return f.Success(rec)
				}
				if err := st.Export(cmd.Context(), args[0], f.Writer); err != nil {
					return f.fail("show snapshot", err)
				}
				return nil
			})
		},
	}
}

func newSnapshotsRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return rootOpts.withStore(func(st *store.Store) error {
				rec, err := st.Rename(cmd.Context(), args[0], args[1])
				if err != nil {
					return f.fail("rename snapshot", err)
				}
				if f.Format == "json" {
					return f.Success(summarize(rec))
				}
				fmt.Fprintf(f.Writer, "Renamed %s to %q\n", rec.ID, rec.Name)
				return nil
			})
		},
	}
}

func newSnapshotsDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return rootOpts.withStore(func(st *store.Store) error {
				existed, err := st.Delete(cmd.Context(), args[0])
				if err != nil {
					return f.fail("delete snapshot", err)
				}
				if f.Format == "json" {
					return f.Success(map[string]any{"id": args[0], "deleted": existed})
				}
				if !existed {
					fmt.Fprintf(f.Writer, "No snapshot %s\n", args[0])
					return nil
				}
				fmt.Fprintf(f.Writer, "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newSnapshotsExportCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a snapshot's document to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return rootOpts.withStore(func(st *store.Store) error {
				path, err := st.ExportToFile(cmd.Context(), args[0], dir)
				if err != nil {
					return f.fail("export snapshot", err)
				}
				if f.Format == "json" {
					return f.Success(map[string]string{"id": args[0], "path": path})
				}
				fmt.Fprintf(f.Writer, "Exported to %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	return cmd
}

func newSnapshotsImportCommand(rootOpts *RootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a configuration document as a new snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return rootOpts.withStore(func(st *store.Store) error {
				rec, err := importFile(cmd, st, args[0], name)
				if err != nil {
					return f.fail("import snapshot", err)
				}
				if f.Format == "json" {
					return f.Success(summarize(rec))
				}
				fmt.Fprintf(f.Writer, "Imported %s as %s (%s)\n", args[0], rec.ID, rec.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default: file name)")
	return cmd
}

// importFile imports path under name, or under a name derived from the
// file when name is empty. An unreadable file is an input error.
func importFile(cmd *cobra.Command, st *store.Store, path, name string) (store.Record, error) {
	fh, err := os.Open(path)
	if err != nil {
		return store.Record{}, fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	defer fh.Close()
	if name == "" {
		name = store.ImportName(path)
	}
	return st.Import(cmd.Context(), name, fh)
}

func newSnapshotsRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Replace all snapshots with the state before the last change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return rootOpts.withStore(func(st *store.Store) error {
				if _, err := st.RestoreBackup(cmd.Context()); err != nil {
					return f.fail("restore backup", err)
				}
				stats := st.Stats(cmd.Context())
				if f.Format == "json" {
					return f.Success(stats)
				}
				fmt.Fprintf(f.Writer, "Restored %d snapshot(s)\n", stats.TotalConfigs)
				return nil
			})
		},
	}
}

func newSnapshotsStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show snapshot count, total size, and last backup time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return rootOpts.withStore(func(st *store.Store) error {
				stats := st.Stats(cmd.Context())
				if f.Format == "json" {
					return f.Success(stats)
				}
				backup := text.FgHiBlack.Sprint("never")
				if stats.LastBackup != nil {
					backup = stats.LastBackup.Local().Format(displayTime)
				}
				f.Table([]any{"Snapshots", "Size (bytes)", "Last backup"}, [][]any{
					{stats.TotalConfigs, stats.TotalSize, backup},
				})
				return nil
			})
		},
	}
}

// LoadResult is the JSON payload of snapshots load.
type LoadResult struct {
	Document ir.Document     `json:"document"`
	Missing  session.Missing `json:"missing"`
}

func newSnapshotsLoadCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "load <id>",
		Short: "Rebuild a snapshot's selection against the current catalog",
		Long: `Load a snapshot into a fresh selection and print the document the
current catalog composes from it. Entries that no longer exist in the
catalog are reported and dropped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return rootOpts.withStore(func(st *store.Store) error {
				s, err := rootOpts.newSession(cmd.Context(), st)
				if err != nil {
					return f.fail("load catalog", err)
				}
				defer s.Close()

				missing, err := s.Load(cmd.Context(), args[0])
				if err != nil {
					return f.fail("load snapshot", err)
				}
				doc, err := s.Compose()
				if err != nil {
					return f.fail("load snapshot", err)
				}

				if f.Format == "json" {
					return f.Success(LoadResult{Document: doc, Missing: missing})
				}
				data, err := doc.Canonical()
				if err != nil {
					return f.fail("load snapshot", err)
				}
				fmt.Fprintln(f.Writer, string(data))
				reportMissing(f, missing)
				return nil
			})
		},
	}
}

func reportMissing(f *OutputFormatter, m session.Missing) {
	if m.Empty() {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	warn := text.FgYellow.Sprint("missing from catalog:")
	for _, group := range []struct {
		kind string
		ids  []string
	}{
		{"model", m.Models},
		{"rule", m.Rules},
		{"role", m.Roles},
		{"command", m.Commands},
	} {
		for _, id := range group.ids {
			fmt.Fprintf(w, "%s %s %s\n", warn, group.kind, id)
		}
	}
}
