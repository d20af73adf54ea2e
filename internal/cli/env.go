package cli

import (
	"context"
	"errors"

	"github.com/roach88/loadout/internal/catalog"
	"github.com/roach88/loadout/internal/selection"
	"github.com/roach88/loadout/internal/session"
	"github.com/roach88/loadout/internal/store"
)

// openSource picks the catalog backend: HTTP when --catalog-url is set,
// otherwise a YAML directory.
func (o *RootOptions) openSource() catalog.Source {
	if o.CatalogURL != "" {
		return catalog.NewHTTPSource(o.CatalogURL, nil)
	}
	dir := o.CatalogDir
	if dir == "" {
		dir = DefaultCatalogDir
	}
	return catalog.NewDirSource(dir)
}

// openStore opens the snapshot database.
func (o *RootOptions) openStore() (*store.Store, error) {
	return store.Open(o.databasePath())
}

// newSession builds and initializes a session over the configured catalog.
// st may be nil when the command never persists.
func (o *RootOptions) newSession(ctx context.Context, st *store.Store) (*session.Session, error) {
	policy := selection.AnchorLocked
	if o.PermissiveAnchor {
		policy = selection.AnchorPermissive
	}
	s := session.New(catalog.NewCache(o.openSource()), st,
		session.WithAnchorID(o.Anchor),
		session.WithAnchorPolicy(policy),
	)
	if err := s.Init(ctx); err != nil {
		s.Close()
		if errors.Is(err, session.ErrAnchorNotFound) || selection.IsFetchFailure(err) {
			return nil, err
		}
		return nil, unavailable(err)
	}
	return s, nil
}

// withStore opens the store, runs fn, and closes the store.
func (o *RootOptions) withStore(fn func(st *store.Store) error) error {
	st, err := o.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
