// Package session owns one selection session: the catalog it draws from,
// the live selection, and the snapshot store it saves to.
//
// A Session is constructed explicitly and passed to whatever front end
// needs it. There is no package-level instance.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/loadout/internal/catalog"
	"github.com/roach88/loadout/internal/compose"
	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/selection"
	"github.com/roach88/loadout/internal/store"
)

var (
	// ErrAnchorNotFound is returned by Init when the model catalog lacks
	// the anchor model.
	ErrAnchorNotFound = errors.New("session: anchor model not in catalog")

	// ErrNotInitialized is returned by operations that need Init first.
	ErrNotInitialized = errors.New("session: not initialized")

	// ErrNoStore is returned by persistence operations on a session
	// created without a store.
	ErrNoStore = errors.New("session: no snapshot store")
)

// Session ties a catalog cache, a selection state, and a snapshot store
// together for the lifetime of one user session.
//
// Thread-safety: all methods are safe for concurrent use. Selection
// mutations go through State().
type Session struct {
	cache    *catalog.Cache
	store    *store.Store
	anchorID string
	policy   selection.AnchorPolicy
	clock    store.Clock

	mu          sync.Mutex
	state       *selection.State
	models      []ir.Model
	roles       map[string]ir.Role
	commands    map[string]ir.Command
	hooks       ir.HookPair
	lastErr     error
	unsubscribe func()
}

// Option configures a Session.
type Option func(*Session)

// WithAnchorID sets the anchor model id. Default: ir.DefaultAnchorID.
func WithAnchorID(id string) Option {
	return func(s *Session) {
		s.anchorID = id
	}
}

// WithAnchorPolicy sets the anchor rule policy. Default: selection.AnchorLocked.
func WithAnchorPolicy(p selection.AnchorPolicy) Option {
	return func(s *Session) {
		s.policy = p
	}
}

// WithClock sets the clock used for export filenames.
func WithClock(c store.Clock) Option {
	return func(s *Session) {
		s.clock = c
	}
}

// New creates a session. st may be nil for a read-only session.
func New(cache *catalog.Cache, st *store.Store, opts ...Option) *Session {
	s := &Session{
		cache:    cache,
		store:    st,
		anchorID: ir.DefaultAnchorID,
		policy:   selection.AnchorLocked,
		clock:    store.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the catalog, builds the selection around the anchor model,
// and waits for the anchor's rules. A failed anchor rule fetch leaves a
// usable session and is returned as a *selection.FetchError.
func (s *Session) Init(ctx context.Context) error {
	var (
		models   []ir.Model
		roles    map[string]ir.Role
		commands map[string]ir.Command
		hooks    ir.HookPair
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		models, err = s.cache.Models(gctx)
		return err
	})
	g.Go(func() (err error) {
		roles, err = s.cache.Roles(gctx)
		return err
	})
	g.Go(func() (err error) {
		commands, err = s.cache.Commands(gctx)
		return err
	})
	g.Go(func() (err error) {
		hooks, err = s.cache.Hooks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.fail(fmt.Errorf("load catalog: %w", err))
	}

	var anchor ir.Model
	found := false
	for _, m := range models {
		if m.ID == s.anchorID {
			anchor, found = m, true
			break
		}
	}
	if !found {
		return s.fail(fmt.Errorf("%w: %q", ErrAnchorNotFound, s.anchorID))
	}

	state := selection.New(anchor, s.cache, selection.WithAnchorPolicy(s.policy))
	unsubscribe := state.Subscribe(func(ev selection.Event) {
		if ev.Type == selection.EventRuleFetchFailed {
			s.setLastError(ev.Err)
		}
	})

	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.state = state
	s.unsubscribe = unsubscribe
	s.models = models
	s.roles = roles
	s.commands = commands
	s.hooks = hooks
	s.lastErr = nil
	s.mu.Unlock()

	slog.Debug("session initialized",
		"anchor", anchor.ID,
		"models", len(models),
		"roles", len(roles),
		"commands", len(commands),
	)
	if err := state.Init(ctx).Wait(ctx); err != nil {
		return s.fail(err)
	}
	return nil
}

// Close detaches the session from its selection state. The store is
// owned by the caller and is not closed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// State returns the live selection, or nil before Init.
func (s *Session) State() *selection.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Store returns the snapshot store, or nil.
func (s *Session) Store() *store.Store {
	return s.store
}

// Models returns the model catalog loaded by Init.
func (s *Session) Models() []ir.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ir.Model(nil), s.models...)
}

// Model looks up a catalog model by id.
func (s *Session) Model(id string) (ir.Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.models {
		if m.ID == id {
			return m, true
		}
	}
	return ir.Model{}, false
}

// Role looks up a catalog role by id.
func (s *Session) Role(id string) (ir.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[id]
	return r, ok
}

// Command looks up a catalog command by id.
func (s *Session) Command(id string) (ir.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commands[id]
	return c, ok
}

// Hooks returns the catalog hook pair.
func (s *Session) Hooks() ir.HookPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hooks
}

// Compose returns the document for the current selection.
func (s *Session) Compose() (ir.Document, error) {
	s.mu.Lock()
	state, hooks := s.state, s.hooks
	s.mu.Unlock()
	if state == nil {
		return ir.Document{}, ErrNotInitialized
	}
	return compose.Compose(state.View(), hooks), nil
}

// LastError returns the most recent failure seen by the session, for
// display. Successful operations do not clear it.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError forgets the last error.
func (s *Session) ClearError() {
	s.setLastError(nil)
}

func (s *Session) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// fail records err as the last error and returns it.
func (s *Session) fail(err error) error {
	if err != nil {
		s.setLastError(err)
	}
	return err
}

func (s *Session) now() time.Time {
	return s.clock.Now()
}
