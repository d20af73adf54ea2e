package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/testutil"
)

func TestSave_LoadRoundTrip(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	doc := testDocument()

	rec, err := s.Save(ctx, "v1", doc, "first cut")
	require.NoError(t, err)

	assert.Equal(t, "snap-1", rec.ID)
	assert.Equal(t, "v1", rec.Name)
	assert.Equal(t, "first cut", rec.Description)
	assert.True(t, rec.CreatedAt.Equal(testutil.DefaultStart))
	assert.True(t, rec.UpdatedAt.Equal(rec.CreatedAt))
	assert.Equal(t, ir.MustDocumentHash(doc), rec.Checksum)

	loaded, err := s.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.Checksum, got.Checksum)
	assert.Equal(t, rec.Size, got.Size)
	assert.True(t, got.CreatedAt.Equal(rec.CreatedAt))
}

func TestSave_PreservesDecomposedUnicode(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	decomposed := "cafe\u0301"
	doc := ir.Document{
		Models: []ir.Model{
			testutil.Model(ir.DefaultAnchorID),
			testutil.Model(decomposed),
			testutil.Model("caf\u00e9"),
		},
		Rules: map[string][]ir.RuleEntry{
			ir.DefaultAnchorID: {{Name: "plan", Content: "r\u00e9sum\u00e9 then e\u0301"}},
			decomposed:         {{Name: "A", Content: decomposed}},
			"caf\u00e9":        {{Name: "B", Content: "precomposed"}},
		},
		Hooks: ir.HookPair{Before: &ir.Hook{Content: "echo e\u0301"}},
	}
	doc.Normalize()

	rec, err := s.Save(ctx, "unicode", doc, "")
	require.NoError(t, err)
	assert.Equal(t, doc, rec.Payload)

	loaded, err := s.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)
	assert.Equal(t, rec.Payload, loaded)
	assert.Len(t, loaded.Rules, 3)
	assert.Equal(t, "echo e\u0301", loaded.Hooks.Before.Content)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, ir.MustDocumentHash(doc), got.Checksum)
}

func TestSave_NormalizesUnsetCollections(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	doc := ir.Document{Models: []ir.Model{testutil.Model(ir.DefaultAnchorID)}}

	rec, err := s.Save(ctx, "bare", doc, "")
	require.NoError(t, err)
	assert.Nil(t, doc.Rules, "caller's document must not be modified")

	loaded, err := s.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.NotNil(t, loaded.Rules)
	assert.NotNil(t, loaded.Roles)
	assert.NotNil(t, loaded.Commands)
	assert.Equal(t, rec.Payload, loaded)
}

func TestSave_DuplicateNamesCreateDistinctRecords(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()
	doc := testDocument()

	first, err := s.Save(ctx, "v1", doc, "")
	require.NoError(t, err)
	second, err := s.Save(ctx, "v1", doc, "")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Payload, second.Payload)
	assert.Equal(t, first.Checksum, second.Checksum)

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSave_BlankName(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.Save(context.Background(), "   ", testDocument(), "")
	assert.True(t, IsInvalidArgument(err), "got %v", err)

	records, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSave_TrimsName(t *testing.T) {
	s, _ := createTestStore(t)

	rec, err := s.Save(context.Background(), "  v1 ", testDocument(), " notes ")
	require.NoError(t, err)
	assert.Equal(t, "v1", rec.Name)
	assert.Equal(t, "notes", rec.Description)
}

func TestUpdate(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec, err := s.Save(ctx, "v1", testDocument(), "")
	require.NoError(t, err)

	changed := testDocument()
	changed.Commands = append(changed.Commands, testutil.Command("build"))
	updated, err := s.Update(ctx, rec.ID, changed)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, updated.ID)
	assert.Equal(t, "v1", updated.Name)
	assert.True(t, updated.CreatedAt.Equal(rec.CreatedAt))
	assert.True(t, updated.UpdatedAt.After(rec.UpdatedAt))
	assert.NotEqual(t, rec.Checksum, updated.Checksum)
	assert.Equal(t, changed, updated.Payload)
}

func TestUpdate_NotFound(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.Update(context.Background(), "nope", testDocument())
	assert.True(t, IsNotFound(err), "got %v", err)
	assert.Nil(t, s.Stats(context.Background()).LastBackup, "failed mutation must not write a backup")
}

func TestRename(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec, err := s.Save(ctx, "v1", testDocument(), "")
	require.NoError(t, err)

	renamed, err := s.Rename(ctx, rec.ID, "release")
	require.NoError(t, err)

	assert.Equal(t, "release", renamed.Name)
	assert.True(t, renamed.UpdatedAt.Equal(testutil.DefaultStart.Add(time.Second)))
	assert.True(t, renamed.CreatedAt.Equal(rec.CreatedAt))
	assert.Equal(t, rec.Payload, renamed.Payload)
}

func TestRename_Errors(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	_, err := s.Rename(ctx, "nope", "x")
	assert.True(t, IsNotFound(err), "got %v", err)

	rec, err := s.Save(ctx, "v1", testDocument(), "")
	require.NoError(t, err)
	_, err = s.Rename(ctx, rec.ID, "")
	assert.True(t, IsInvalidArgument(err), "got %v", err)
}

func TestDelete(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	rec, err := s.Save(ctx, "v1", testDocument(), "")
	require.NoError(t, err)

	existed, err := s.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = s.Get(ctx, rec.ID)
	assert.True(t, IsNotFound(err))

	existed, err = s.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestLoad_NotFound(t *testing.T) {
	s, _ := createTestStore(t)

	_, err := s.Load(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "load", se.Op)
	assert.Equal(t, "missing", se.ID)
}
