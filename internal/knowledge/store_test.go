package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/persistence"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	require.NoError(t, persistence.Reset())
	require.NoError(t, persistence.Initialize(t.TempDir()+"/knowledge_test.db"))
	t.Cleanup(func() { _ = persistence.Reset() })
	require.NoError(t, EnsureSchema(persistence.GetDB()))
	return NewStore()
}

func TestIndexAndSearchRanksMatches(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, ScopeDocs, "Deployment guide", "The deploy pipeline resolves secrets before deploying."))
	require.NoError(t, store.Index(ctx, ScopeCode, "env_analyzer.go", "classifies each environment variable into infra, computed, or user"))

	results, err := store.Search(ctx, "deploy secrets", ScopeDocs, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "Deployment guide", results[0].Title)
}

func TestSearchScopeAllCoversEveryCorpus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, ScopeLogs, "deploy-worker", "job deploy_proj_ab12cd34 failed readiness check"))
	require.NoError(t, store.Index(ctx, ScopeHistory, "thread-42", "user asked to deploy hello-world-bot"))

	results, err := store.Search(ctx, "deploy", ScopeAll, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestSearchEmptyQueryReturnsNil(t *testing.T) {
	store := setupTestStore(t)
	results, err := store.Search(context.Background(), "   ", ScopeAll, 10)
	require.NoError(t, err)
	require.Nil(t, results)
}
