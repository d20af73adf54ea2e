package catalog

import (
	"context"
	"errors"

	"github.com/roach88/loadout/internal/ir"
)

// ErrUnknownModel is returned by sources when a rule catalog is requested
// for a model they do not know.
var ErrUnknownModel = errors.New("catalog: unknown model")

// Source is the backend collaborator. Any returned error is a fetch failure.
type Source interface {
	FetchModels(ctx context.Context) ([]ir.Model, error)
	FetchRules(ctx context.Context, modelID string) (map[string]ir.Rule, error)
	FetchRoles(ctx context.Context) (map[string]ir.Role, error)
	FetchCommands(ctx context.Context) (map[string]ir.Command, error)
	FetchHooks(ctx context.Context) (ir.HookPair, error)
}
