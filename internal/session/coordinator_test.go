package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/testkit"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	return New(testkit.NewRedis(t), 30*time.Minute)
}

func TestContinueOrStartAllocatesNewThread(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	threadID, outcome, err := c.ContinueOrStart(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeNew, outcome)
	require.NotEmpty(t, threadID)
}

func TestContinueOrStartReportsBusyWhileProcessing(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	_, outcome, err := c.ContinueOrStart(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeNew, outcome)

	_, outcome, err = c.ContinueOrStart(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeBusy, outcome)
}

func TestContinueOrStartResumesAwaitingThread(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	threadID, _, err := c.ContinueOrStart(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, c.UpdateState(ctx, "user-1", StateAwaiting))

	resumedID, outcome, err := c.ContinueOrStart(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeContinuation, outcome)
	require.Equal(t, threadID, resumedID)
}

func TestReleaseAllowsFreshThread(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	first, _, err := c.ContinueOrStart(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, c.Release(ctx, "user-1"))

	second, outcome, err := c.ContinueOrStart(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, OutcomeNew, outcome)
	require.NotEqual(t, first, second)
}

func TestThreadIDsAreMonotonicPerUser(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	first, _, err := c.ContinueOrStart(ctx, "user-1")
	require.NoError(t, err)
	require.NoError(t, c.Release(ctx, "user-1"))

	second, _, err := c.ContinueOrStart(ctx, "user-1")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}
