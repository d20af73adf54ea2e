package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/selection"
	"github.com/roach88/loadout/internal/store"
)

// SaveCurrent composes the selection and saves it as a new snapshot.
func (s *Session) SaveCurrent(ctx context.Context, name, description string) (store.Record, error) {
	if s.store == nil {
		return store.Record{}, s.fail(ErrNoStore)
	}
	doc, err := s.Compose()
	if err != nil {
		return store.Record{}, s.fail(err)
	}
	rec, err := s.store.Save(ctx, name, doc, description)
	if err != nil {
		return store.Record{}, s.fail(err)
	}
	return rec, nil
}

// ResaveCurrent replaces the payload of snapshot id with the current
// composition.
func (s *Session) ResaveCurrent(ctx context.Context, id string) (store.Record, error) {
	if s.store == nil {
		return store.Record{}, s.fail(ErrNoStore)
	}
	doc, err := s.Compose()
	if err != nil {
		return store.Record{}, s.fail(err)
	}
	rec, err := s.store.Update(ctx, id, doc)
	if err != nil {
		return store.Record{}, s.fail(err)
	}
	return rec, nil
}

// ExportCurrent writes the current composition into dir and returns the
// file path.
func (s *Session) ExportCurrent(dir string) (string, error) {
	doc, err := s.Compose()
	if err != nil {
		return "", s.fail(err)
	}
	path, err := store.WriteDocumentFile(dir, doc, s.now())
	if err != nil {
		return "", s.fail(fmt.Errorf("export: %w", err))
	}
	return path, nil
}

// Missing lists document entries that Hydrate could not restore because
// they no longer exist in the catalog.
type Missing struct {
	Models   []string `json:"models,omitempty"`
	Rules    []string `json:"rules,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Commands []string `json:"commands,omitempty"`
}

// Empty reports whether everything was restored.
func (m Missing) Empty() bool {
	return len(m.Models) == 0 && len(m.Rules) == 0 && len(m.Roles) == 0 && len(m.Commands) == 0
}

// Load reads snapshot id and hydrates the selection from it.
func (s *Session) Load(ctx context.Context, id string) (Missing, error) {
	if s.store == nil {
		return Missing{}, s.fail(ErrNoStore)
	}
	doc, err := s.store.Load(ctx, id)
	if err != nil {
		return Missing{}, s.fail(err)
	}
	return s.Hydrate(ctx, doc)
}

// Hydrate resets the selection and re-applies doc: models are added in
// document order, their rule fetches awaited, then rule, role, and
// command selections that still exist in the catalog are restored.
// Entries that no longer exist are reported in Missing.
//
// A failed rule fetch does not stop the restore; the remaining entries
// are applied and the fetch errors are returned joined, each a
// *selection.FetchError. Rules saved for such a model are not restored.
func (s *Session) Hydrate(ctx context.Context, doc ir.Document) (Missing, error) {
	state := s.State()
	if state == nil {
		return Missing{}, s.fail(ErrNotInitialized)
	}
	var missing Missing
	anchorID := state.Anchor().ID

	fetches := []*selection.Fetch{state.Reset(ctx)}
	for _, m := range doc.Models {
		if m.ID == anchorID {
			continue
		}
		model, ok := s.Model(m.ID)
		if !ok {
			missing.Models = append(missing.Models, m.ID)
			continue
		}
		fetches = append(fetches, state.ToggleModel(ctx, model))
	}
	if err := state.Wait(ctx); err != nil {
		return missing, s.fail(err)
	}

	var fetchErrs []error
	for _, f := range fetches {
		if err := f.Err(); err != nil {
			fetchErrs = append(fetchErrs, err)
		}
	}

	for _, m := range doc.Models {
		if !state.IsModelSelected(m.ID) {
			continue
		}
		s.restoreRules(m.ID, doc.Rules[m.ID], &missing)
	}

	if len(doc.Roles) > 0 {
		id := doc.Roles[0].ID
		if role, ok := s.Role(id); ok {
			state.SelectRole(role)
		} else {
			missing.Roles = append(missing.Roles, id)
		}
	}

	for _, c := range doc.Commands {
		cmd, ok := s.Command(c.ID)
		if !ok {
			missing.Commands = append(missing.Commands, c.ID)
			continue
		}
		if !state.IsCommandSelected(cmd.ID) {
			state.ToggleCommand(cmd)
		}
	}

	if !missing.Empty() {
		slog.Warn("snapshot entries no longer in catalog",
			"models", missing.Models,
			"rules", missing.Rules,
			"roles", missing.Roles,
			"commands", missing.Commands,
		)
	}
	if len(fetchErrs) > 0 {
		return missing, s.fail(errors.Join(fetchErrs...))
	}
	return missing, nil
}

// restoreRules makes the model's selection match entries in entry order,
// as far as the model's rule cache allows.
func (s *Session) restoreRules(modelID string, entries []ir.RuleEntry, missing *Missing) {
	state := s.State()
	cache, loaded := state.Rules(modelID)

	want := make(map[string]bool, len(entries))
	for _, e := range entries {
		want[e.Name] = true
		if _, ok := cache[e.Name]; loaded && !ok {
			missing.Rules = append(missing.Rules, modelID+"/"+e.Name)
		}
	}

	// The anchor starts fully selected; only a permissive policy lets
	// rules absent from the document be dropped.
	if modelID == state.Anchor().ID {
		if state.Policy() != selection.AnchorPermissive {
			return
		}
		for _, name := range state.SelectedRuleNames(modelID) {
			if !want[name] {
				state.ToggleRule(modelID, name)
			}
		}
		return
	}

	for _, e := range entries {
		if !state.IsRuleSelected(modelID, e.Name) {
			state.ToggleRule(modelID, e.Name)
		}
	}
}
