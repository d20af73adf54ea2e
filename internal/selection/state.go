package selection

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/loadout/internal/ir"
)

// RuleFetcher loads the rule catalog of one model. catalog.Cache implements it.
type RuleFetcher interface {
	FetchRules(ctx context.Context, modelID string) (map[string]ir.Rule, error)
}

// AnchorPolicy controls whether the anchor's rules may be toggled by hand.
type AnchorPolicy int

const (
	// AnchorLocked keeps every anchor rule selected at all times.
	AnchorLocked AnchorPolicy = iota

	// AnchorPermissive allows toggling anchor rules. Loads and resets still
	// select every anchor rule.
	AnchorPermissive
)

// String returns the policy name.
func (p AnchorPolicy) String() string {
	if p == AnchorPermissive {
		return "permissive"
	}
	return "locked"
}

// Option configures a State.
type Option func(*State)

// WithAnchorPolicy sets the anchor rule policy. Default: AnchorLocked.
func WithAnchorPolicy(p AnchorPolicy) Option {
	return func(s *State) {
		s.policy = p
	}
}

// State is the live selection aggregate for one session.
type State struct {
	mu      sync.Mutex
	anchor  ir.Model
	policy  AnchorPolicy
	fetcher RuleFetcher

	models        *orderedSet[ir.Model]
	ruleCache     map[string]map[string]ir.Rule
	selectedRules map[string]*orderedSet[struct{}]
	role          *ir.Role
	commands      *orderedSet[ir.Command]

	// inflight maps a model id to the ticket of its current rule fetch.
	// Completions whose ticket no longer matches are stale.
	inflight map[string]uint64
	tickets  uint64
	fetches  map[uint64]*Fetch

	// queue holds events in the order their mutations were applied until
	// flush delivers them. Guarded by mu.
	queue []Event

	deliverMu    sync.Mutex
	obsMu        sync.Mutex
	observers    map[int]Observer
	nextObserver int
}

// New creates a State whose only selected model is anchor. No rule fetch is
// issued until Init or Reset is called.
func New(anchor ir.Model, fetcher RuleFetcher, opts ...Option) *State {
	s := &State{
		anchor:        anchor,
		fetcher:       fetcher,
		models:        newOrderedSet[ir.Model](),
		ruleCache:     make(map[string]map[string]ir.Rule),
		selectedRules: make(map[string]*orderedSet[struct{}]),
		commands:      newOrderedSet[ir.Command](),
		inflight:      make(map[string]uint64),
		fetches:       make(map[uint64]*Fetch),
		observers:     make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.models.add(anchor.ID, anchor)
	return s
}

// Init issues the anchor's initial rule fetch.
func (s *State) Init(ctx context.Context) *Fetch {
	s.mu.Lock()
	f := s.issueFetch(s.anchor.ID)
	s.mu.Unlock()

	s.start(ctx, f)
	return f
}

// Anchor returns the anchor model.
func (s *State) Anchor() ir.Model {
	return s.anchor
}

// Policy returns the anchor rule policy.
func (s *State) Policy() AnchorPolicy {
	return s.policy
}

// ToggleModel removes a selected non-anchor model (clearing its rule cache
// and selection) or appends an unselected model and starts fetching its
// rules. Returns the fetch handle when a fetch was issued, nil otherwise.
func (s *State) ToggleModel(ctx context.Context, m ir.Model) *Fetch {
	if m.ID == "" {
		return nil
	}

	s.mu.Lock()
	if s.models.has(m.ID) {
		if m.ID == s.anchor.ID {
			s.mu.Unlock()
			return nil
		}
		s.models.remove(m.ID)
		s.dropModelLocked(m.ID)
		s.queueLocked(Event{Type: EventModelDeselected, ModelID: m.ID})
		s.mu.Unlock()

		slog.Debug("model deselected", "model", m.ID)
		s.flush()
		return nil
	}

	s.models.add(m.ID, m)
	f := s.issueFetch(m.ID)
	s.queueLocked(Event{Type: EventModelSelected, ModelID: m.ID, Selected: true})
	s.mu.Unlock()

	slog.Debug("model selected", "model", m.ID)
	s.flush()
	s.start(ctx, f)
	return f
}

// dropModelLocked removes all scoped data for a model. Caller holds s.mu.
func (s *State) dropModelLocked(modelID string) {
	delete(s.ruleCache, modelID)
	delete(s.selectedRules, modelID)
	delete(s.inflight, modelID)
}

// ToggleRule flips one rule's membership. No-op for a locked anchor, an
// unselected model, or a rule not in the model's cache.
func (s *State) ToggleRule(modelID, ruleName string) {
	s.mu.Lock()
	if !s.rulesEditableLocked(modelID) {
		s.mu.Unlock()
		return
	}
	if _, ok := s.ruleCache[modelID][ruleName]; !ok {
		s.mu.Unlock()
		return
	}

	set := s.ruleSetLocked(modelID)
	selected := set.add(ruleName, struct{}{})
	if !selected {
		set.remove(ruleName)
	}
	s.queueLocked(Event{Type: EventRuleToggled, ModelID: modelID, RuleName: ruleName, Selected: selected})
	s.mu.Unlock()

	s.flush()
}

// ToggleAllRulesForModel selects every known rule of the model unless all
// are already selected, in which case it clears the model's selection.
// No-op for a locked anchor or a model without cached rules.
func (s *State) ToggleAllRulesForModel(modelID string) {
	s.mu.Lock()
	if !s.rulesEditableLocked(modelID) {
		s.mu.Unlock()
		return
	}
	cache := s.ruleCache[modelID]
	if len(cache) == 0 {
		s.mu.Unlock()
		return
	}

	set := s.ruleSetLocked(modelID)
	allSelected := set.len() == len(cache)
	if allSelected {
		set.clear()
	} else {
		for _, name := range sortedRuleNames(cache) {
			set.add(name, struct{}{})
		}
	}
	s.queueLocked(Event{Type: EventRulesChanged, ModelID: modelID, Selected: !allSelected})
	s.mu.Unlock()

	s.flush()
}

// rulesEditableLocked reports whether a user may change the model's rule
// selection. Caller holds s.mu.
func (s *State) rulesEditableLocked(modelID string) bool {
	if !s.models.has(modelID) {
		return false
	}
	if modelID == s.anchor.ID && s.policy == AnchorLocked {
		return false
	}
	return true
}

func (s *State) ruleSetLocked(modelID string) *orderedSet[struct{}] {
	set, ok := s.selectedRules[modelID]
	if !ok {
		set = newOrderedSet[struct{}]()
		s.selectedRules[modelID] = set
	}
	return set
}

// SelectRole selects role, replacing any previous role. Selecting the
// already-selected role deselects it.
func (s *State) SelectRole(role ir.Role) {
	if role.ID == "" {
		return
	}

	s.mu.Lock()
	if s.role != nil && s.role.ID == role.ID {
		s.role = nil
		s.queueLocked(Event{Type: EventRoleChanged, RoleID: role.ID, Selected: false})
	} else {
		r := role
		s.role = &r
		s.queueLocked(Event{Type: EventRoleChanged, RoleID: role.ID, Selected: true})
	}
	s.mu.Unlock()

	s.flush()
}

// ToggleCommand adds or removes a command by id.
func (s *State) ToggleCommand(cmd ir.Command) {
	if cmd.ID == "" {
		return
	}

	s.mu.Lock()
	selected := s.commands.add(cmd.ID, cmd)
	if !selected {
		s.commands.remove(cmd.ID)
	}
	s.queueLocked(Event{Type: EventCommandToggled, CommandID: cmd.ID, Selected: selected})
	s.mu.Unlock()

	s.flush()
}

// Reset returns the state to the anchor alone with every anchor rule
// selected, and re-fetches the anchor's rules. Role and commands are cleared.
func (s *State) Reset(ctx context.Context) *Fetch {
	s.mu.Lock()
	anchorRules := s.ruleCache[s.anchor.ID]

	s.models.clear()
	s.models.add(s.anchor.ID, s.anchor)
	s.ruleCache = make(map[string]map[string]ir.Rule)
	s.selectedRules = make(map[string]*orderedSet[struct{}])
	s.inflight = make(map[string]uint64)
	s.role = nil
	s.commands.clear()

	if anchorRules != nil {
		s.applyRulesLocked(s.anchor.ID, anchorRules)
	}
	f := s.issueFetch(s.anchor.ID)
	s.queueLocked(Event{Type: EventReset, ModelID: s.anchor.ID})
	s.mu.Unlock()

	slog.Debug("selection reset", "anchor", s.anchor.ID)
	s.flush()
	s.start(ctx, f)
	return f
}

// applyRulesLocked stores a model's rule catalog. The anchor gets every
// rule selected; other models keep any prior selection that still exists.
// Caller holds s.mu.
func (s *State) applyRulesLocked(modelID string, rules map[string]ir.Rule) {
	cache := make(map[string]ir.Rule, len(rules))
	for name, r := range rules {
		cache[name] = r
	}
	s.ruleCache[modelID] = cache

	prev := s.selectedRules[modelID]
	set := newOrderedSet[struct{}]()
	if modelID == s.anchor.ID {
		for _, name := range sortedRuleNames(cache) {
			set.add(name, struct{}{})
		}
	} else if prev != nil {
		for _, name := range prev.orderedKeys() {
			if _, ok := cache[name]; ok {
				set.add(name, struct{}{})
			}
		}
	}
	s.selectedRules[modelID] = set
}

func sortedRuleNames(rules map[string]ir.Rule) []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
