package compose

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/selection"
	"github.com/roach88/loadout/internal/testutil"
)

func newState(t *testing.T) (*testutil.FakeCatalog, *selection.State) {
	t.Helper()
	cat := testutil.NewFakeCatalog()
	anchor := cat.AddModel(ir.DefaultAnchorID, "plan", "delegate")
	cat.AddModel("debug", "A", "B")

	s := selection.New(anchor, cat)
	require.NoError(t, s.Init(context.Background()).Wait(context.Background()))
	return cat, s
}

func TestCompose_DebugScenarioGolden(t *testing.T) {
	_, s := newState(t)
	ctx := context.Background()

	require.NoError(t, s.ToggleModel(ctx, testutil.Model("debug")).Wait(ctx))
	s.ToggleRule("debug", "A")
	s.SelectRole(testutil.Role("architect"))
	s.ToggleCommand(testutil.Command("lint"))
	s.ToggleCommand(testutil.Command("build"))

	hooks := ir.HookPair{Before: &ir.Hook{Content: "echo start", Metadata: &ir.Metadata{Title: "Start"}}}
	doc := Compose(s.View(), hooks)

	assert.Equal(t, []ir.RuleEntry{{Name: "A", Content: "content of debug/A"}}, doc.Rules["debug"])

	data, err := doc.Canonical()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "debug_scenario", data)
}

func TestCompose_Deterministic(t *testing.T) {
	_, s := newState(t)
	ctx := context.Background()

	require.NoError(t, s.ToggleModel(ctx, testutil.Model("debug")).Wait(ctx))
	s.ToggleAllRulesForModel("debug")

	first := Compose(s.View(), ir.HookPair{})
	second := Compose(s.View(), ir.HookPair{})
	assert.Equal(t, first, second)

	a, err := first.Canonical()
	require.NoError(t, err)
	b, err := second.Canonical()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCompose_AnchorOnly(t *testing.T) {
	_, s := newState(t)

	doc := Compose(s.View(), ir.HookPair{})

	assert.Equal(t, []string{ir.DefaultAnchorID}, doc.ModelIDs())
	assert.Equal(t, []ir.RuleEntry{
		{Name: "delegate", Content: "content of orchestrator/delegate"},
		{Name: "plan", Content: "content of orchestrator/plan"},
	}, doc.Rules[ir.DefaultAnchorID])
	assert.Empty(t, doc.Roles)
	assert.NotNil(t, doc.Roles)
	assert.Empty(t, doc.Commands)
	assert.NotNil(t, doc.Commands)
	assert.True(t, doc.Hooks.IsZero())
}

func TestCompose_ModelWithoutSelectedRulesHasNoRuleKey(t *testing.T) {
	cat, s := newState(t)
	ctx := context.Background()
	cat.Gate("debug")

	f := s.ToggleModel(ctx, testutil.Model("debug"))
	pending := Compose(s.View(), ir.HookPair{})
	assert.Equal(t, []string{ir.DefaultAnchorID, "debug"}, pending.ModelIDs())
	assert.NotContains(t, pending.Rules, "debug")

	cat.Release("debug")
	require.NoError(t, f.Wait(ctx))
	loaded := Compose(s.View(), ir.HookPair{})
	assert.NotContains(t, loaded.Rules, "debug")
}

func TestCompose_RuleOrderFollowsSelection(t *testing.T) {
	_, s := newState(t)
	ctx := context.Background()

	require.NoError(t, s.ToggleModel(ctx, testutil.Model("debug")).Wait(ctx))
	s.ToggleRule("debug", "B")
	s.ToggleRule("debug", "A")

	doc := Compose(s.View(), ir.HookPair{})
	require.Len(t, doc.Rules["debug"], 2)
	assert.Equal(t, "B", doc.Rules["debug"][0].Name)
	assert.Equal(t, "A", doc.Rules["debug"][1].Name)
}

func TestCompose_SkipsNamesMissingFromCache(t *testing.T) {
	view := selection.View{
		Models:        []ir.Model{testutil.Model("debug")},
		RuleCache:     map[string]map[string]ir.Rule{"debug": {"A": testutil.Rule("debug", "A", "a")}},
		SelectedRules: map[string][]string{"debug": {"A", "ghost"}, "unselected": {"X"}},
	}

	doc := Compose(view, ir.HookPair{})

	assert.Equal(t, []ir.RuleEntry{{Name: "A", Content: "a"}}, doc.Rules["debug"])
	assert.NotContains(t, doc.Rules, "unselected")
}

func TestCompose_HooksAreCopied(t *testing.T) {
	hooks := ir.HookPair{
		Before: &ir.Hook{Content: "before"},
		After:  &ir.Hook{Content: "after"},
	}

	doc := Compose(selection.View{}, hooks)
	hooks.Before.Content = "mutated"

	require.NotNil(t, doc.Hooks.Before)
	require.NotNil(t, doc.Hooks.After)
	assert.Equal(t, "before", doc.Hooks.Before.Content)
	assert.Equal(t, "after", doc.Hooks.After.Content)
}
