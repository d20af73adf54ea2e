package selection

import (
	"github.com/roach88/loadout/internal/ir"
)

// View is an immutable copy of the selection, safe to read without locks.
// It is the input of the document composer.
type View struct {
	Anchor ir.Model

	// Models in selection order, anchor first.
	Models []ir.Model

	// RuleCache holds the fetched rule catalog per selected model. Models
	// whose fetch is pending or failed have no entry.
	RuleCache map[string]map[string]ir.Rule

	// SelectedRules holds selected rule names per model in selection order.
	SelectedRules map[string][]string

	Role     *ir.Role
	Commands []ir.Command
}

// View returns a snapshot of the current selection.
func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		Anchor:        s.anchor,
		Models:        s.models.values(),
		RuleCache:     make(map[string]map[string]ir.Rule, len(s.ruleCache)),
		SelectedRules: make(map[string][]string, len(s.selectedRules)),
		Commands:      s.commands.values(),
	}
	for id, rules := range s.ruleCache {
		cp := make(map[string]ir.Rule, len(rules))
		for name, r := range rules {
			cp[name] = r
		}
		v.RuleCache[id] = cp
	}
	for id, set := range s.selectedRules {
		v.SelectedRules[id] = set.orderedKeys()
	}
	if s.role != nil {
		r := *s.role
		v.Role = &r
	}
	return v
}

// Models returns the selected models in selection order.
func (s *State) Models() []ir.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.models.values()
}

// IsModelSelected reports whether modelID is selected.
func (s *State) IsModelSelected(modelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.models.has(modelID)
}

// Rules returns the cached rule catalog for modelID and whether it is
// loaded.
func (s *State) Rules(modelID string) (map[string]ir.Rule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rules, ok := s.ruleCache[modelID]
	if !ok {
		return nil, false
	}
	cp := make(map[string]ir.Rule, len(rules))
	for name, r := range rules {
		cp[name] = r
	}
	return cp, true
}

// SelectedRuleNames returns the selected rule names of modelID in
// selection order.
func (s *State) SelectedRuleNames(modelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.selectedRules[modelID]
	if !ok {
		return []string{}
	}
	return set.orderedKeys()
}

// IsRuleSelected reports whether ruleName is selected for modelID.
func (s *State) IsRuleSelected(modelID, ruleName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.selectedRules[modelID]
	return ok && set.has(ruleName)
}

// Role returns the selected role, or nil.
func (s *State) Role() *ir.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role == nil {
		return nil
	}
	r := *s.role
	return &r
}

// Commands returns the selected commands in selection order.
func (s *State) Commands() []ir.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands.values()
}

// IsCommandSelected reports whether commandID is selected.
func (s *State) IsCommandSelected(commandID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands.has(commandID)
}
