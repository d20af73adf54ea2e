package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/loadout/internal/ir"
)

// Cache stores catalog entries per entity type after the first successful
// fetch. Failed fetches leave the previous (possibly empty) entry in place.
//
// Thread-safety: all methods are safe for concurrent use.
type Cache struct {
	source Source

	mu       sync.RWMutex
	models   []ir.Model
	roles    map[string]ir.Role
	commands map[string]ir.Command
	hooks    *ir.HookPair
	loaded   map[ir.Kind]bool

	// rules deduplicates concurrent FetchRules calls for the same model
	rules singleflight.Group
}

// NewCache creates an empty cache over the given source.
func NewCache(source Source) *Cache {
	return &Cache{
		source: source,
		loaded: make(map[ir.Kind]bool),
	}
}

// Models returns the model catalog in source order, fetching it once.
func (c *Cache) Models(ctx context.Context) ([]ir.Model, error) {
	c.mu.RLock()
	if c.loaded[ir.KindModel] {
		out := append([]ir.Model(nil), c.models...)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	models, err := c.source.FetchModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}

	c.mu.Lock()
	c.models = append([]ir.Model(nil), models...)
	c.loaded[ir.KindModel] = true
	c.mu.Unlock()

	slog.Debug("catalog models loaded", "count", len(models))
	return append([]ir.Model(nil), models...), nil
}

// Model looks up a model by id. The model catalog must be loadable.
func (c *Cache) Model(ctx context.Context, id string) (ir.Model, bool, error) {
	models, err := c.Models(ctx)
	if err != nil {
		return ir.Model{}, false, err
	}
	for _, m := range models {
		if m.ID == id {
			return m, true, nil
		}
	}
	return ir.Model{}, false, nil
}

// Roles returns the role catalog keyed by id, fetching it once.
func (c *Cache) Roles(ctx context.Context) (map[string]ir.Role, error) {
	c.mu.RLock()
	if c.loaded[ir.KindRole] {
		out := cloneMap(c.roles)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	roles, err := c.source.FetchRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch roles: %w", err)
	}

	c.mu.Lock()
	c.roles = cloneMap(roles)
	c.loaded[ir.KindRole] = true
	c.mu.Unlock()

	slog.Debug("catalog roles loaded", "count", len(roles))
	return cloneMap(roles), nil
}

// Commands returns the command catalog keyed by id, fetching it once.
func (c *Cache) Commands(ctx context.Context) (map[string]ir.Command, error) {
	c.mu.RLock()
	if c.loaded[ir.KindCommand] {
		out := cloneMap(c.commands)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	commands, err := c.source.FetchCommands(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch commands: %w", err)
	}

	c.mu.Lock()
	c.commands = cloneMap(commands)
	c.loaded[ir.KindCommand] = true
	c.mu.Unlock()

	slog.Debug("catalog commands loaded", "count", len(commands))
	return cloneMap(commands), nil
}

// Hooks returns the fixed hook pair, fetching it once.
func (c *Cache) Hooks(ctx context.Context) (ir.HookPair, error) {
	c.mu.RLock()
	if c.hooks != nil {
		out := *c.hooks
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	hooks, err := c.source.FetchHooks(ctx)
	if err != nil {
		return ir.HookPair{}, fmt.Errorf("fetch hooks: %w", err)
	}

	c.mu.Lock()
	c.hooks = &hooks
	c.mu.Unlock()
	return hooks, nil
}

// FetchRules fetches the rule catalog of one model. Concurrent calls for the
// same model share a single backend request. Results are not stored.
//
// The shared request is not bound to any one caller's cancellation; each
// caller stops waiting when its own ctx is done and the request runs on
// for the others.
func (c *Cache) FetchRules(ctx context.Context, modelID string) (map[string]ir.Rule, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.rules.DoChan(modelID, func() (interface{}, error) {
		return c.source.FetchRules(detached, modelID)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("fetch rules for %q: %w", modelID, res.Err)
		}
		if res.Shared {
			slog.Debug("rule fetch shared", "model", modelID)
		}
		return cloneMap(res.Val.(map[string]ir.Rule)), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch rules for %q: %w", modelID, ctx.Err())
	}
}

// Refresh drops every cached entity type so the next read refetches.
func (c *Cache) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = nil
	c.roles = nil
	c.commands = nil
	c.hooks = nil
	c.loaded = make(map[ir.Kind]bool)
}

// SortedIDs returns the keys of a catalog map in ascending order.
func SortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
