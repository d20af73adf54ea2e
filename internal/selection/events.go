package selection

// EventType names a state change.
type EventType string

const (
	EventModelSelected   EventType = "model_selected"
	EventModelDeselected EventType = "model_deselected"
	EventRulesLoaded     EventType = "rules_loaded"
	EventRuleFetchFailed EventType = "rule_fetch_failed"
	EventFetchDiscarded  EventType = "fetch_discarded"
	EventRuleToggled     EventType = "rule_toggled"
	EventRulesChanged    EventType = "rules_changed"
	EventRoleChanged     EventType = "role_changed"
	EventCommandToggled  EventType = "command_toggled"
	EventReset           EventType = "reset"
)

// Event describes one effective mutation. Only the fields relevant to Type
// are set.
type Event struct {
	Type      EventType
	ModelID   string
	RuleName  string
	RoleID    string
	CommandID string
	Selected  bool
	Err       error
}

// Observer receives events after the mutation that produced them.
// Observers are called one at a time, in the order the mutations were
// applied, possibly from a fetch goroutine. An observer must not call
// back into the State.
type Observer func(Event)

// Subscribe registers fn and returns a function that unregisters it.
func (s *State) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers, id)
	}
}

// queueLocked records ev for delivery. Caller holds s.mu, so the queue
// order is the order mutations were applied.
func (s *State) queueLocked(ev Event) {
	s.queue = append(s.queue, ev)
}

// flush delivers queued events. Delivery is serialized by deliverMu, so
// when flush returns every event queued before the call has been
// delivered, by this goroutine or another. Must be called without s.mu
// held.
func (s *State) flush() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	for {
		s.mu.Lock()
		events := s.queue
		s.queue = nil
		s.mu.Unlock()
		if len(events) == 0 {
			return
		}

		fns := s.observerList()
		for _, ev := range events {
			for _, fn := range fns {
				fn(ev)
			}
		}
	}
}

func (s *State) observerList() []Observer {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	fns := make([]Observer, 0, len(s.observers))
	for id := 0; id < s.nextObserver; id++ {
		if fn, ok := s.observers[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}
