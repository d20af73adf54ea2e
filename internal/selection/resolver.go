package selection

import (
	"context"
	"log/slog"

	"github.com/roach88/loadout/internal/ir"
)

// Fetch is the handle of one asynchronous rule fetch. A nil *Fetch is a
// fetch that was never issued and reports done immediately.
type Fetch struct {
	ModelID string
	ticket  uint64
	done    chan struct{}
	err     error
	applied bool
}

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Done is closed once the fetch has completed, its result was applied or
// discarded, and observers were notified.
func (f *Fetch) Done() <-chan struct{} {
	if f == nil {
		return closedDone
	}
	return f.done
}

// Wait blocks until the fetch completes or ctx is done. It returns the
// fetch error, if any, or ctx.Err().
func (f *Fetch) Wait(ctx context.Context) error {
	select {
	case <-f.Done():
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the fetch error (a *FetchError) once done. Nil before
// completion and for successful fetches.
func (f *Fetch) Err() error {
	if f == nil {
		return nil
	}
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Applied reports whether the result changed state. False for failed
// fetches and for fetches discarded as stale.
func (f *Fetch) Applied() bool {
	if f == nil {
		return false
	}
	select {
	case <-f.done:
		return f.applied
	default:
		return false
	}
}

// issueFetch registers a rule fetch for modelID as the model's current
// request. The fetch is not running until start is called, so callers can
// queue their own event first. Caller holds s.mu.
func (s *State) issueFetch(modelID string) *Fetch {
	if s.fetcher == nil {
		return nil
	}
	s.tickets++
	f := &Fetch{ModelID: modelID, ticket: s.tickets, done: make(chan struct{})}
	s.inflight[modelID] = f.ticket
	s.fetches[f.ticket] = f
	return f
}

// start runs a registered fetch. Must be called without s.mu held.
func (s *State) start(ctx context.Context, f *Fetch) {
	if f == nil {
		return
	}
	go func() {
		rules, err := s.fetcher.FetchRules(ctx, f.ModelID)
		s.complete(f, rules, err)
	}()
}

// complete applies or discards a fetch result. A result is current only if
// the model is still selected and no newer fetch was issued for it since.
// Observers see the resulting event before the fetch reports done.
func (s *State) complete(f *Fetch, rules map[string]ir.Rule, err error) {
	s.mu.Lock()
	current := s.models.has(f.ModelID) && s.inflight[f.ModelID] == f.ticket
	if current {
		delete(s.inflight, f.ModelID)
	}

	var ev Event
	switch {
	case err != nil:
		f.err = &FetchError{ModelID: f.ModelID, Err: err}
		if current {
			ev = Event{Type: EventRuleFetchFailed, ModelID: f.ModelID, Err: f.err}
		} else {
			ev = Event{Type: EventFetchDiscarded, ModelID: f.ModelID, Err: f.err}
		}
	case !current:
		ev = Event{Type: EventFetchDiscarded, ModelID: f.ModelID}
	default:
		s.applyRulesLocked(f.ModelID, rules)
		f.applied = true
		ev = Event{Type: EventRulesLoaded, ModelID: f.ModelID, Selected: f.ModelID == s.anchor.ID}
	}
	s.queueLocked(ev)
	s.mu.Unlock()

	switch ev.Type {
	case EventRuleFetchFailed:
		slog.Warn("rule fetch failed", "model", f.ModelID, "error", err)
	case EventFetchDiscarded:
		slog.Debug("stale rule fetch discarded", "model", f.ModelID, "ticket", f.ticket)
	default:
		slog.Debug("rules loaded", "model", f.ModelID, "count", len(rules))
	}
	s.flush()

	s.mu.Lock()
	delete(s.fetches, f.ticket)
	s.mu.Unlock()
	close(f.done)
}

// Wait blocks until every fetch issued so far, and any issued while
// waiting, has completed. It returns ctx.Err() if ctx is done first.
// Fetch failures are not returned; see Fetch.Err and EventRuleFetchFailed.
func (s *State) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		pending := make([]*Fetch, 0, len(s.fetches))
		for _, f := range s.fetches {
			pending = append(pending, f)
		}
		s.mu.Unlock()

		if len(pending) == 0 {
			return nil
		}
		for _, f := range pending {
			select {
			case <-f.done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Pending returns the number of fetches not yet completed.
func (s *State) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fetches)
}
