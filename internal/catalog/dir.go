package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/loadout/internal/ir"
)

// Catalog file names inside a DirSource directory.
const (
	ModelsFile   = "models.yaml"
	RolesFile    = "roles.yaml"
	CommandsFile = "commands.yaml"
	HooksFile    = "hooks.yaml"
	RulesDir     = "rules"
)

// DirSource reads a catalog from YAML files:
//
//	<dir>/models.yaml          list of models (required)
//	<dir>/roles.yaml           list of roles
//	<dir>/commands.yaml        list of commands
//	<dir>/hooks.yaml           {before: {...}, after: {...}}
//	<dir>/rules/<model>.yaml   list of rules for one model
//
// Optional files that are missing yield empty catalogs. Files are re-read on
// every fetch; put a Cache in front for fetch-once semantics.
type DirSource struct {
	Dir string
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

// FetchModels implements Source.
func (s *DirSource) FetchModels(ctx context.Context) ([]ir.Model, error) {
	var models []ir.Model
	found, err := s.readYAML(ModelsFile, &models)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("catalog: %s not found in %s", ModelsFile, s.Dir)
	}
	for i, m := range models {
		if m.ID == "" {
			return nil, fmt.Errorf("catalog: %s entry %d has no id", ModelsFile, i)
		}
	}
	return models, nil
}

// FetchRules implements Source.
func (s *DirSource) FetchRules(ctx context.Context, modelID string) (map[string]ir.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	known, err := s.hasModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}

	var rules []ir.Rule
	if _, err := s.readYAML(filepath.Join(RulesDir, modelID+".yaml"), &rules); err != nil {
		return nil, err
	}

	out := make(map[string]ir.Rule, len(rules))
	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("catalog: rules for %s: entry %d has no id", modelID, i)
		}
		r.OwnerModelID = modelID
		out[r.ID] = r
	}
	return out, nil
}

// FetchRoles implements Source.
func (s *DirSource) FetchRoles(ctx context.Context) (map[string]ir.Role, error) {
	var roles []ir.Role
	if _, err := s.readYAML(RolesFile, &roles); err != nil {
		return nil, err
	}
	out := make(map[string]ir.Role, len(roles))
	for _, r := range roles {
		out[r.ID] = r
	}
	return out, nil
}

// FetchCommands implements Source.
func (s *DirSource) FetchCommands(ctx context.Context) (map[string]ir.Command, error) {
	var commands []ir.Command
	if _, err := s.readYAML(CommandsFile, &commands); err != nil {
		return nil, err
	}
	out := make(map[string]ir.Command, len(commands))
	for _, c := range commands {
		out[c.ID] = c
	}
	return out, nil
}

// FetchHooks implements Source.
func (s *DirSource) FetchHooks(ctx context.Context) (ir.HookPair, error) {
	var hooks ir.HookPair
	if _, err := s.readYAML(HooksFile, &hooks); err != nil {
		return ir.HookPair{}, err
	}
	return hooks, nil
}

func (s *DirSource) hasModel(ctx context.Context, id string) (bool, error) {
	models, err := s.FetchModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// readYAML decodes a catalog file into out. Returns found=false if the file
// does not exist.
func (s *DirSource) readYAML(name string, out any) (bool, error) {
	path := filepath.Join(s.Dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return true, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return true, nil
}
