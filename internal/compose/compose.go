// Package compose projects a selection into a configuration document.
//
// Compose is pure and total: it reads only its arguments, never fails,
// and returns equal documents for equal inputs. It never injects
// timestamps.
package compose

import (
	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/selection"
)

// Compose builds the document for view with hooks passed through verbatim.
//
// Rules has an entry for each selected model with at least one selected
// rule, listed in selection order. Selected names missing from the
// model's rule cache are skipped.
func Compose(view selection.View, hooks ir.HookPair) ir.Document {
	doc := ir.Document{
		Models:   make([]ir.Model, len(view.Models)),
		Rules:    make(map[string][]ir.RuleEntry),
		Roles:    []ir.Role{},
		Commands: make([]ir.Command, len(view.Commands)),
		Hooks:    copyHooks(hooks),
	}
	copy(doc.Models, view.Models)
	copy(doc.Commands, view.Commands)

	for _, m := range view.Models {
		cache := view.RuleCache[m.ID]
		var entries []ir.RuleEntry
		for _, name := range view.SelectedRules[m.ID] {
			rule, ok := cache[name]
			if !ok {
				continue
			}
			entries = append(entries, ir.RuleEntry{Name: name, Content: rule.Content})
		}
		if len(entries) > 0 {
			doc.Rules[m.ID] = entries
		}
	}

	if view.Role != nil {
		doc.Roles = append(doc.Roles, *view.Role)
	}
	return doc
}

func copyHooks(h ir.HookPair) ir.HookPair {
	var out ir.HookPair
	if h.Before != nil {
		before := *h.Before
		out.Before = &before
	}
	if h.After != nil {
		after := *h.After
		out.After = &after
	}
	return out
}
