package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/testutil"
)

// createTestStore opens a store in a temp dir with a step clock and
// sequential ids.
func createTestStore(t *testing.T) (*Store, *testutil.StepClock) {
	t.Helper()
	clock := testutil.NewStepClock()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(clock), WithIDGenerator(testutil.NewSequentialIDs("snap")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

// testDocument returns a normalized document with two models.
func testDocument() ir.Document {
	doc := ir.Document{
		Models: []ir.Model{
			testutil.Model(ir.DefaultAnchorID),
			testutil.Model("debug"),
		},
		Rules: map[string][]ir.RuleEntry{
			ir.DefaultAnchorID: {{Name: "plan", Content: "Plan first."}},
			"debug":            {{Name: "A", Content: "Trace <everything> & log it."}},
		},
		Roles:    []ir.Role{testutil.Role("architect")},
		Commands: []ir.Command{testutil.Command("lint")},
		Hooks:    ir.HookPair{After: &ir.Hook{Content: "echo done"}},
	}
	doc.Normalize()
	return doc
}
