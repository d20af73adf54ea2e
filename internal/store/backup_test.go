package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreBackup_NoBackup(t *testing.T) {
	s, _ := createTestStore(t)

	ok, err := s.RestoreBackup(context.Background())

	assert.False(t, ok)
	assert.True(t, IsNoBackup(err), "got %v", err)
}

func TestRestoreBackup_UndoesLastMutation(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	a, err := s.Save(ctx, "a", testDocument(), "")
	require.NoError(t, err)
	_, err = s.Save(ctx, "b", testDocument(), "")
	require.NoError(t, err)
	_, err = s.Delete(ctx, a.ID)
	require.NoError(t, err)

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"snap-2"}, recordIDs(records))

	ok, err := s.RestoreBackup(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	records, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"snap-1", "snap-2"}, recordIDs(records))

	restored, err := s.Load(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Payload, restored)
}

func TestRestoreBackup_Repeatable(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	a, err := s.Save(ctx, "a", testDocument(), "")
	require.NoError(t, err)
	_, err = s.Rename(ctx, a.ID, "renamed")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ok, err := s.RestoreBackup(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		rec, err := s.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "a", rec.Name)
	}
}

func TestRestoreBackup_FirstSaveBackupIsEmptySet(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "a", testDocument(), "")
	require.NoError(t, err)

	ok, err := s.RestoreBackup(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDelete_AbsentDoesNotTouchBackup(t *testing.T) {
	s, _ := createTestStore(t)
	ctx := context.Background()

	_, err := s.Delete(ctx, "ghost")
	require.NoError(t, err)

	_, err = s.RestoreBackup(ctx)
	assert.True(t, IsNoBackup(err))
}
