package engineering

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/coordinator"
	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/jobqueue"
	"github.com/forgeworks/sdo/internal/persistence"
	"github.com/forgeworks/sdo/internal/proto"
	"github.com/forgeworks/sdo/internal/redisx"
	"github.com/forgeworks/sdo/internal/testkit"
)

func newTestRedis(t *testing.T) *redisx.Client {
	t.Helper()
	return testkit.NewRedis(t)
}

func TestTriggerEngineeringEnqueuesJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(crudclient.Project{ID: "proj-1", Slug: "hello-world-bot"})
	}))
	defer srv.Close()
	crud := crudclient.New(srv.URL, "test-token")
	dispatcher := jobqueue.New(newTestRedis(t))

	tool := triggerEngineeringTool(crud, dispatcher)
	out, err := tool.Execute(context.Background(), &coordinator.RunContext{UserID: 7, CorrelationID: "corr-1"}, map[string]any{
		"project_id":       "proj-1",
		"task_description": "Add a /stop command.",
	})
	require.NoError(t, err)
	require.Equal(t, out["job_id"], out["thread_id"])
	require.Regexp(t, `^engineering_hello-world-bot_[0-9a-f]{8}$`, out["job_id"])
}

func TestGetEngineeringStatusReadsCheckpoint(t *testing.T) {
	require.NoError(t, persistence.Reset())
	require.NoError(t, persistence.Initialize(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { _ = persistence.Reset() })

	store := persistence.NewCheckpointStore()
	ctx := context.Background()

	state := proto.NewGraphState("engineering_hello-world-bot_abcd1234", "corr-1")
	state.EngineeringStatus = proto.EngineeringBlocked
	state.ReviewFeedback = "3 tests still failing"
	state.NeedsHumanApproval = true
	require.NoError(t, store.Save(ctx, "engineering_hello-world-bot_abcd1234", "tester", state))

	tool := getEngineeringStatusTool(store)
	out, err := tool.Execute(ctx, &coordinator.RunContext{}, map[string]any{"job_id": "engineering_hello-world-bot_abcd1234"})
	require.NoError(t, err)
	require.Equal(t, true, out["found"])
	require.Equal(t, string(proto.EngineeringBlocked), out["status"])
	require.Equal(t, "3 tests still failing", out["review_feedback"])
	require.Equal(t, true, out["needs_approval"])
}
