package jobqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/testkit"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	return New(testkit.NewRedis(t))
}

func TestEnqueueJobIDFormat(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	jobID, err := d.Enqueue(ctx, KindDeploy, "my-project", "user-1", "corr-1", nil)
	require.NoError(t, err)
	require.Regexp(t, `^deploy_my-project_[0-9a-f]{8}$`, jobID)
}

func TestRunWorkerProcessesAndAcksEntry(t *testing.T) {
	d := newTestDispatcher(t)
	require.NoError(t, d.EnsureGroup(context.Background(), KindDeploy))

	_, err := d.Enqueue(context.Background(), KindDeploy, "proj", "user-1", "corr-1", map[string]any{"x": 1.0})
	require.NoError(t, err)

	var mu sync.Mutex
	var processed []string

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		_ = d.RunWorker(ctx, KindDeploy, "worker-1", 5*time.Minute, func(_ context.Context, entry Entry) error {
			mu.Lock()
			processed = append(processed, entry.JobID)
			mu.Unlock()
			cancel()
			return nil
		})
	}()

	<-ctx.Done()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, processed, 1)
}
