package selection

import (
	"errors"
	"fmt"
)

// Validate checks the selection invariants and returns every violation
// found, joined. A nil result means the state is consistent.
func (s *State) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if !s.models.has(s.anchor.ID) {
		errs = append(errs, fmt.Errorf("anchor model %q not selected", s.anchor.ID))
	}

	if s.policy == AnchorLocked {
		if cache, ok := s.ruleCache[s.anchor.ID]; ok {
			set := s.selectedRules[s.anchor.ID]
			if set == nil || set.len() != len(cache) {
				errs = append(errs, fmt.Errorf("anchor model %q: not every cached rule is selected", s.anchor.ID))
			}
		}
	}

	for id, set := range s.selectedRules {
		if !s.models.has(id) {
			errs = append(errs, fmt.Errorf("rule selection for unselected model %q", id))
			continue
		}
		cache := s.ruleCache[id]
		for _, name := range set.orderedKeys() {
			if _, ok := cache[name]; !ok {
				errs = append(errs, fmt.Errorf("model %q: selected rule %q not in cache", id, name))
			}
		}
	}
	for id := range s.ruleCache {
		if !s.models.has(id) {
			errs = append(errs, fmt.Errorf("rule cache for unselected model %q", id))
		}
	}

	seen := make(map[string]bool, s.commands.len())
	for _, c := range s.commands.values() {
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("duplicate command %q", c.ID))
		}
		seen[c.ID] = true
	}

	return errors.Join(errs...)
}
