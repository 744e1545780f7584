package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeveloperAdapterCreatesContainerLazilyAndReusesIt(t *testing.T) {
	exec := newFakeExec()
	m := newTestManager(t, exec, fakeFactory{})
	adapter := NewDeveloperAdapter(m, Config{Agent: "fake", EnvVars: map[string]string{"FAKE_API_KEY": "x"}})

	ctx := context.Background()
	summary, err := adapter.RunTask(ctx, "/workspace/repo", "implement the feature", "")
	require.NoError(t, err)
	require.Equal(t, "did: implement the feature", summary)
	require.NotEmpty(t, adapter.agentID)

	firstID := adapter.agentID
	summary2, err := adapter.RunTask(ctx, "/workspace/repo", "implement the feature", "test failed: assertion X")
	require.NoError(t, err)
	require.Contains(t, summary2, "did: implement the feature")
	require.Equal(t, firstID, adapter.agentID, "adapter must reuse the same container across rework iterations")

	require.NoError(t, adapter.Cleanup(ctx))
}

func TestDeveloperAdapterCleanupWithoutRunTaskIsNoop(t *testing.T) {
	exec := newFakeExec()
	m := newTestManager(t, exec, fakeFactory{})
	adapter := NewDeveloperAdapter(m, Config{Agent: "fake", EnvVars: map[string]string{"FAKE_API_KEY": "x"}})
	require.NoError(t, adapter.Cleanup(context.Background()))
}
