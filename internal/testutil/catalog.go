package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/loadout/internal/ir"
)

// FakeCatalog is an in-memory catalog source for tests.
//
// Rule fetches can be held open per model with Gate and released with
// Release, which lets tests control completion order. Fail makes the next
// rule fetches for a model return an error.
type FakeCatalog struct {
	mu       sync.Mutex
	Models   []ir.Model
	Rules    map[string]map[string]ir.Rule
	Roles    map[string]ir.Role
	Commands map[string]ir.Command
	Hooks    ir.HookPair

	gates    map[string]chan struct{}
	failures map[string]error
	calls    map[string]int
}

// NewFakeCatalog creates an empty fake catalog.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Rules:    make(map[string]map[string]ir.Rule),
		Roles:    make(map[string]ir.Role),
		Commands: make(map[string]ir.Command),
		gates:    make(map[string]chan struct{}),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Model builds a model entry.
func Model(id string) ir.Model {
	return ir.Model{Item: ir.Item{ID: id, DisplayName: id}}
}

// Rule builds a rule entry owned by modelID.
func Rule(modelID, name, content string) ir.Rule {
	return ir.Rule{Item: ir.Item{ID: name}, OwnerModelID: modelID, Content: content}
}

// Role builds a role entry.
func Role(id string) ir.Role {
	return ir.Role{Item: ir.Item{ID: id}, Content: "role " + id}
}

// Command builds a command entry.
func Command(id string) ir.Command {
	return ir.Command{Item: ir.Item{ID: id}, Content: "command " + id}
}

// AddModel registers a model and its rules.
func (f *FakeCatalog) AddModel(id string, ruleNames ...string) ir.Model {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := Model(id)
	f.Models = append(f.Models, m)
	rules := make(map[string]ir.Rule, len(ruleNames))
	for _, name := range ruleNames {
		rules[name] = Rule(id, name, "content of "+id+"/"+name)
	}
	f.Rules[id] = rules
	return m
}

// Gate makes rule fetches for modelID block until Release is called.
func (f *FakeCatalog) Gate(modelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[modelID] = make(chan struct{})
}

// Release unblocks gated rule fetches for modelID.
func (f *FakeCatalog) Release(modelID string) {
	f.mu.Lock()
	gate, ok := f.gates[modelID]
	delete(f.gates, modelID)
	f.mu.Unlock()
	if ok {
		close(gate)
	}
}

// Fail makes rule fetches for modelID return err until cleared with a nil err.
func (f *FakeCatalog) Fail(modelID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, modelID)
		return
	}
	f.failures[modelID] = err
}

// RuleCalls returns how many rule fetches were issued for modelID.
func (f *FakeCatalog) RuleCalls(modelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[modelID]
}

// FetchModels implements catalog.Source.
func (f *FakeCatalog) FetchModels(ctx context.Context) ([]ir.Model, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ir.Model(nil), f.Models...), nil
}

// FetchRules implements catalog.Source and selection.RuleFetcher.
func (f *FakeCatalog) FetchRules(ctx context.Context, modelID string) (map[string]ir.Rule, error) {
	f.mu.Lock()
	f.calls[modelID]++
	gate := f.gates[modelID]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures[modelID]; err != nil {
		return nil, err
	}
	rules, ok := f.Rules[modelID]
	if !ok {
		return nil, fmt.Errorf("unknown model %q", modelID)
	}
	out := make(map[string]ir.Rule, len(rules))
	for k, v := range rules {
		out[k] = v
	}
	return out, nil
}

// FetchRoles implements catalog.Source.
func (f *FakeCatalog) FetchRoles(ctx context.Context) (map[string]ir.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]ir.Role, len(f.Roles))
	for k, v := range f.Roles {
		out[k] = v
	}
	return out, nil
}

// FetchCommands implements catalog.Source.
func (f *FakeCatalog) FetchCommands(ctx context.Context) (map[string]ir.Command, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]ir.Command, len(f.Commands))
	for k, v := range f.Commands {
		out[k] = v
	}
	return out, nil
}

// FetchHooks implements catalog.Source.
func (f *FakeCatalog) FetchHooks(ctx context.Context) (ir.HookPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Hooks, nil
}
