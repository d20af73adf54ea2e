package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/testutil"
)

// countingSource wraps a FakeCatalog and counts non-rule fetches.
type countingSource struct {
	*testutil.FakeCatalog
	mu     sync.Mutex
	models int
	roles  int
	fail   error
}

func (s *countingSource) FetchModels(ctx context.Context) ([]ir.Model, error) {
	s.mu.Lock()
	s.models++
	fail := s.fail
	s.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	return s.FakeCatalog.FetchModels(ctx)
}

func (s *countingSource) FetchRoles(ctx context.Context) (map[string]ir.Role, error) {
	s.mu.Lock()
	s.roles++
	s.mu.Unlock()
	return s.FakeCatalog.FetchRoles(ctx)
}

func newCountingSource() *countingSource {
	fake := testutil.NewFakeCatalog()
	fake.AddModel("orchestrator", "plan", "delegate")
	fake.AddModel("debug", "A", "B")
	fake.Roles["reviewer"] = testutil.Role("reviewer")
	fake.Commands["ship"] = testutil.Command("ship")
	fake.Hooks = ir.HookPair{Before: &ir.Hook{Content: "pre"}}
	return &countingSource{FakeCatalog: fake}
}

func TestCache_ModelsFetchedOnce(t *testing.T) {
	src := newCountingSource()
	c := NewCache(src)
	ctx := context.Background()

	first, err := c.Models(ctx)
	require.NoError(t, err)
	second, err := c.Models(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, src.models)
}

func TestCache_ModelLookup(t *testing.T) {
	c := NewCache(newCountingSource())

	m, ok, err := c.Model(context.Background(), "debug")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "debug", m.ID)

	_, ok, err = c.Model(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_FailedFetchNotCached(t *testing.T) {
	src := newCountingSource()
	src.fail = errors.New("backend down")
	c := NewCache(src)

	_, err := c.Models(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")

	src.fail = nil
	models, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Len(t, models, 2)
	assert.Equal(t, 2, src.models)
}

func TestCache_RolesCommandsHooks(t *testing.T) {
	src := newCountingSource()
	c := NewCache(src)
	ctx := context.Background()

	roles, err := c.Roles(ctx)
	require.NoError(t, err)
	assert.Contains(t, roles, "reviewer")

	// Mutating the returned map must not affect the cache.
	delete(roles, "reviewer")
	again, err := c.Roles(ctx)
	require.NoError(t, err)
	assert.Contains(t, again, "reviewer")
	assert.Equal(t, 1, src.roles)

	commands, err := c.Commands(ctx)
	require.NoError(t, err)
	assert.Contains(t, commands, "ship")

	hooks, err := c.Hooks(ctx)
	require.NoError(t, err)
	require.NotNil(t, hooks.Before)
	assert.Equal(t, "pre", hooks.Before.Content)
}

func TestCache_Refresh(t *testing.T) {
	src := newCountingSource()
	c := NewCache(src)
	ctx := context.Background()

	_, err := c.Models(ctx)
	require.NoError(t, err)
	c.Refresh()
	_, err = c.Models(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, src.models)
}

func TestCache_FetchRulesNotStored(t *testing.T) {
	src := newCountingSource()
	c := NewCache(src)
	ctx := context.Background()

	rules, err := c.FetchRules(ctx, "debug")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, SortedIDs(rules))

	_, err = c.FetchRules(ctx, "debug")
	require.NoError(t, err)
	assert.Equal(t, 2, src.RuleCalls("debug"))
}

func TestCache_FetchRulesDeduplicatesInFlight(t *testing.T) {
	src := newCountingSource()
	src.Gate("debug")
	c := NewCache(src)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]map[string]ir.Rule, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = c.FetchRules(ctx, "debug")
	}()
	require.Eventually(t, func() bool { return src.RuleCalls("debug") == 1 }, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = c.FetchRules(ctx, "debug")
	}()
	time.Sleep(50 * time.Millisecond)
	src.Release("debug")
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, 1, src.RuleCalls("debug"))
}

func TestCache_FetchRulesCancelStaysWithCaller(t *testing.T) {
	src := newCountingSource()
	src.Gate("debug")
	c := NewCache(src)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.FetchRules(firstCtx, "debug")
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return src.RuleCalls("debug") == 1 }, time.Second, time.Millisecond)

	type result struct {
		rules map[string]ir.Rule
		err   error
	}
	second := make(chan result, 1)
	go func() {
		rules, err := c.FetchRules(context.Background(), "debug")
		second <- result{rules, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	err := <-firstErr
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	src.Release("debug")
	got := <-second
	require.NoError(t, got.err)
	assert.Len(t, got.rules, 2)
	assert.Equal(t, 1, src.RuleCalls("debug"))
}

func TestCache_FetchRulesError(t *testing.T) {
	src := newCountingSource()
	src.Fail("debug", errors.New("boom"))
	c := NewCache(src)

	_, err := c.FetchRules(context.Background(), "debug")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `fetch rules for "debug"`)
}
