package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/loadout/internal/catalog"
	"github.com/roach88/loadout/internal/ir"
)

// NewCatalogCommand creates the catalog command and its listing subcommands.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse the model, rule, role, command, and hook catalog",
		Example: `  loadout catalog models
  loadout catalog rules debug
  loadout --catalog-url https://example.com/api catalog roles`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "models",
		Short: "List models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			cache := catalog.NewCache(rootOpts.openSource())
			models, err := cache.Models(cmd.Context())
			if err != nil {
				return f.fail("load models", unavailable(err))
			}
			if f.Format == "json" {
				return f.Success(models)
			}
			rows := make([][]any, 0, len(models))
			for _, m := range models {
				anchor := ""
				if m.ID == rootOpts.Anchor {
					anchor = "*"
				}
				rows = append(rows, []any{m.ID, m.DisplayName, describe(m.Metadata), anchor})
			}
			f.Table([]any{"ID", "Name", "Description", "Anchor"}, rows)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rules <model>",
		Short: "List the rules of one model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			cache := catalog.NewCache(rootOpts.openSource())
			_, known, err := cache.Model(cmd.Context(), args[0])
			if err != nil {
				return f.fail("load models", unavailable(err))
			}
			if !known {
				return f.fail("load rules", fmt.Errorf("%w: model %q", errUnknownEntry, args[0]))
			}
			rules, err := cache.FetchRules(cmd.Context(), args[0])
			if err != nil {
				return f.fail("load rules", unavailable(err))
			}
			if f.Format == "json" {
				ordered := make([]ir.Rule, 0, len(rules))
				for _, name := range catalog.SortedIDs(rules) {
					ordered = append(ordered, rules[name])
				}
				return f.Success(ordered)
			}
			rows := make([][]any, 0, len(rules))
			for _, name := range catalog.SortedIDs(rules) {
				rows = append(rows, []any{name, excerpt(rules[name].Content)})
			}
			f.Table([]any{"Rule", "Content"}, rows)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "roles",
		Short: "List roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			roles, err := catalog.NewCache(rootOpts.openSource()).Roles(cmd.Context())
			if err != nil {
				return f.fail("load roles", unavailable(err))
			}
			return listContent(f, "Role", catalog.SortedIDs(roles), func(id string) (ir.Item, string) {
				return roles[id].Item, roles[id].Content
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "commands",
		Short: "List commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			commands, err := catalog.NewCache(rootOpts.openSource()).Commands(cmd.Context())
			if err != nil {
				return f.fail("load commands", unavailable(err))
			}
			return listContent(f, "Command", catalog.SortedIDs(commands), func(id string) (ir.Item, string) {
				return commands[id].Item, commands[id].Content
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "hooks",
		Short: "Show the before and after hooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			hooks, err := catalog.NewCache(rootOpts.openSource()).Hooks(cmd.Context())
			if err != nil {
				return f.fail("load hooks", unavailable(err))
			}
			if f.Format == "json" {
				return f.Success(hooks)
			}
			rows := [][]any{}
			if hooks.Before != nil {
				rows = append(rows, []any{"before", excerpt(hooks.Before.Content)})
			}
			if hooks.After != nil {
				rows = append(rows, []any{"after", excerpt(hooks.After.Content)})
			}
			f.Table([]any{"Hook", "Content"}, rows)
			return nil
		},
	})

	return cmd
}

// catalogEntry is the JSON shape for role and command listings.
type catalogEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Content     string `json:"content"`
}

func listContent(f *OutputFormatter, label string, ids []string, get func(id string) (ir.Item, string)) error {
	if f.Format == "json" {
		entries := make([]catalogEntry, 0, len(ids))
		for _, id := range ids {
			item, content := get(id)
			entries = append(entries, catalogEntry{ID: item.ID, DisplayName: item.DisplayName, Content: content})
		}
		return f.Success(entries)
	}
	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		item, content := get(id)
		rows = append(rows, []any{item.ID, item.DisplayName, excerpt(content)})
	}
	f.Table([]any{label, "Name", "Content"}, rows)
	return nil
}

func describe(md *ir.Metadata) string {
	if md == nil {
		return ""
	}
	return md.Description
}

// excerpt returns the first line of s, truncated for table display.
func excerpt(s string) string {
	const max = 60
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if r := []rune(line); len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return line
}
