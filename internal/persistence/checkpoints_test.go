package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/proto"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, Reset())
	dbPath := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, Initialize(dbPath))
	t.Cleanup(func() { _ = Reset() })
}

func TestCheckpointSaveAndLoad(t *testing.T) {
	setupTestDB(t)
	store := NewCheckpointStore()
	ctx := context.Background()

	state := proto.NewGraphState("thread-1", "corr-1")
	state.CurrentProject = "demo"

	require.NoError(t, store.Save(ctx, "thread-1", "coordinator", state))

	node, loaded, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, "coordinator", node)
	require.Equal(t, "demo", loaded.CurrentProject)
}

func TestCheckpointLoadMissingReturnsNotFound(t *testing.T) {
	setupTestDB(t)
	store := NewCheckpointStore()
	_, _, err := store.Load(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteOlderThanPrunesExpired(t *testing.T) {
	setupTestDB(t)
	store := NewCheckpointStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "thread-1", "coordinator", proto.NewGraphState("thread-1", "corr-1")))

	n, err := store.DeleteOlderThan(ctx, -1*time.Second)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, _, err = store.Load(ctx, "thread-1")
	require.ErrorIs(t, err, ErrNotFound)
}
