package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/session"
	"github.com/roach88/loadout/internal/store"
)

// ComposeOptions holds flags for the compose command.
type ComposeOptions struct {
	*RootOptions
	Models      []string
	Rules       []string // "model:rule"
	Role        string
	Commands    []string
	Save        string
	Update      string
	Description string
	Export      string
}

// ComposeResult is the JSON payload of a compose invocation.
type ComposeResult struct {
	Document   ir.Document   `json:"document"`
	Hash       string        `json:"hash"`
	Snapshot   *store.Record `json:"snapshot,omitempty"`
	ExportPath string        `json:"export_path,omitempty"`
}

// NewComposeCommand creates the compose command.
func NewComposeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComposeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose a configuration document from a selection",
		Long: `Select models, rules, a role, and commands, then print the composed
document. The anchor model is always included with its rules.

Rules are given as model:rule and require their model to be selected.`,
		Example: `  loadout compose --model debug --rule debug:trace --role architect
  loadout compose --model debug --command lint --save "debugging"
  loadout compose --model debug --update 0192f3c4-...
  loadout compose --export ./out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Models, "model", nil, "select a model (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Rules, "rule", nil, "select a rule as model:rule (repeatable)")
	cmd.Flags().StringVar(&opts.Role, "role", "", "select the role")
	cmd.Flags().StringArrayVar(&opts.Commands, "command", nil, "select a command (repeatable)")
	cmd.Flags().StringVar(&opts.Save, "save", "", "save the result as a snapshot with this name")
	cmd.Flags().StringVar(&opts.Update, "update", "", "replace the document of this snapshot id with the result")
	cmd.Flags().StringVar(&opts.Description, "description", "", "snapshot description (with --save)")
	cmd.Flags().StringVar(&opts.Export, "export", "", "write the result into this directory")

	return cmd
}

func runCompose(cmd *cobra.Command, opts *ComposeOptions) error {
	f := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()

	if opts.Description != "" && opts.Save == "" {
		return f.fail("compose", fmt.Errorf("%w: --description requires --save", errInvalidInput))
	}
	if opts.Save != "" && opts.Update != "" {
		return f.fail("compose", fmt.Errorf("%w: --save and --update are exclusive", errInvalidInput))
	}

	var st *store.Store
	if opts.Save != "" || opts.Update != "" {
		var err error
		st, err = opts.openStore()
		if err != nil {
			return f.fail("open snapshot store", err)
		}
		defer st.Close()
	}

	s, err := opts.newSession(ctx, st)
	if err != nil {
		return f.fail("load catalog", err)
	}
	defer s.Close()

	if err := applySelection(ctx, s, opts); err != nil {
		return f.fail("compose", err)
	}

	doc, err := s.Compose()
	if err != nil {
		return f.fail("compose", err)
	}
	result := ComposeResult{Document: doc, Hash: ir.MustDocumentHash(doc)}

	if opts.Save != "" {
		rec, err := s.SaveCurrent(ctx, opts.Save, opts.Description)
		if err != nil {
			return f.fail("save snapshot", err)
		}
		result.Snapshot = &rec
		f.VerboseLog("saved snapshot %s", rec.ID)
	}
	if opts.Update != "" {
		rec, err := s.ResaveCurrent(ctx, opts.Update)
		if err != nil {
			return f.fail("update snapshot", err)
		}
		result.Snapshot = &rec
		f.VerboseLog("updated snapshot %s", rec.ID)
	}
	if opts.Export != "" {
		path, err := s.ExportCurrent(opts.Export)
		if err != nil {
			return f.fail("export", err)
		}
		result.ExportPath = path
		f.VerboseLog("exported to %s", path)
	}

	if f.Format == "json" {
		return f.Success(result)
	}
	if result.Snapshot == nil && result.ExportPath == "" {
		data, err := doc.Canonical()
		if err != nil {
			return f.fail("compose", err)
		}
		fmt.Fprintln(f.Writer, string(data))
		return nil
	}
	if result.Snapshot != nil {
		verb := "Saved"
		if opts.Update != "" {
			verb = "Updated"
		}
		fmt.Fprintf(f.Writer, "%s snapshot %s (%s)\n", verb, result.Snapshot.ID, result.Snapshot.Name)
	}
	if result.ExportPath != "" {
		fmt.Fprintf(f.Writer, "Exported to %s\n", result.ExportPath)
	}
	return nil
}

// applySelection drives the session's selection from the command flags.
// Models are selected first and their rule fetches awaited so rule flags
// can resolve against the loaded catalogs.
func applySelection(ctx context.Context, s *session.Session, opts *ComposeOptions) error {
	state := s.State()

	for _, id := range opts.Models {
		m, ok := s.Model(id)
		if !ok {
			return fmt.Errorf("%w: model %q", errUnknownEntry, id)
		}
		if !state.IsModelSelected(id) {
			state.ToggleModel(ctx, m)
		}
	}
	if err := state.Wait(ctx); err != nil {
		return err
	}
	if err := s.LastError(); err != nil {
		return err
	}

	for _, ref := range opts.Rules {
		modelID, name, ok := strings.Cut(ref, ":")
		if !ok || modelID == "" || name == "" {
			return fmt.Errorf("%w: rule %q must be model:rule", errInvalidInput, ref)
		}
		if !state.IsModelSelected(modelID) {
			return fmt.Errorf("%w: rule %q: model %q is not selected", errInvalidInput, ref, modelID)
		}
		rules, _ := state.Rules(modelID)
		if _, ok := rules[name]; !ok {
			return fmt.Errorf("%w: rule %q", errUnknownEntry, ref)
		}
		if !state.IsRuleSelected(modelID, name) {
			state.ToggleRule(modelID, name)
		}
	}

	if opts.Role != "" {
		role, ok := s.Role(opts.Role)
		if !ok {
			return fmt.Errorf("%w: role %q", errUnknownEntry, opts.Role)
		}
		state.SelectRole(role)
	}

	for _, id := range opts.Commands {
		c, ok := s.Command(id)
		if !ok {
			return fmt.Errorf("%w: command %q", errUnknownEntry, id)
		}
		if !state.IsCommandSelected(id) {
			state.ToggleCommand(c)
		}
	}
	return nil
}
