package deploy

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
)

func TestFindSuitableServerFiltersByRAMAndPicksGreatestRAM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]crudclient.Server{
			{Handle: "srv-small", AvailableRAMMB: 512, Status: crudclient.ServerStatusReady},
			{Handle: "srv-big", AvailableRAMMB: 4096, Status: crudclient.ServerStatusReady},
			{Handle: "srv-busiest", AvailableRAMMB: 8192, Status: crudclient.ServerStatusInUse},
		})
	}))
	defer srv.Close()
	crud := crudclient.New(srv.URL, "test-token")

	tool := findSuitableServerTool(crud)
	out, err := tool.Execute(context.Background(), &coordinator.RunContext{}, map[string]any{"ram_mb": float64(1024)})
	require.NoError(t, err)

	require.Equal(t, true, out["found"])
	require.Equal(t, "srv-busiest", out["handle"])
	require.Equal(t, 8192, out["available_ram_mb"])
}

func TestTriggerDeployEnqueuesJobAndReturnsThreadID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(crudclient.Project{ID: "proj-1", Slug: "hello-world-bot"})
	}))
	defer srv.Close()
	crud := crudclient.New(srv.URL, "test-token")
	rdb := newTestRedis(t)
	dispatcher := jobqueue.New(rdb)

	tool := triggerDeployTool(crud, dispatcher)
	out, err := tool.Execute(context.Background(), &coordinator.RunContext{UserID: 42, CorrelationID: "corr-1"}, map[string]any{"project_id": "proj-1"})
	require.NoError(t, err)
	require.Equal(t, out["job_id"], out["thread_id"])
	require.Regexp(t, `^deploy_hello-world-bot_[0-9a-f]{8}$`, out["job_id"])
}

func TestCheckDeployReadinessReportsMissingAllocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(crudclient.Project{ID: "hello-world-bot", RepositoryURL: "https://github.com/acme/hello-world-bot"})
	}))
	defer srv.Close()
	crud := crudclient.New(srv.URL, "test-token")

	tool := checkDeployReadinessTool(crud)
	out, err := tool.Execute(context.Background(), &coordinator.RunContext{}, map[string]any{"project_id": "hello-world-bot"})
	require.NoError(t, err)
	require.Equal(t, false, out["ready"])
	require.Equal(t, []string{"allocated_resources"}, out["missing"])
}

func TestCheckDeployReadinessReadyWhenAllocated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(crudclient.Project{
			ID:             "hello-world-bot",
			RepositoryURL:  "https://github.com/acme/hello-world-bot",
			DeployedServer: "vps-267179",
			DeployedPort:   8080,
		})
	}))
	defer srv.Close()
	crud := crudclient.New(srv.URL, "test-token")

	tool := checkDeployReadinessTool(crud)
	out, err := tool.Execute(context.Background(), &coordinator.RunContext{}, map[string]any{"project_id": "hello-world-bot"})
	require.NoError(t, err)
	require.Equal(t, true, out["ready"])
	require.Empty(t, out["missing"])
}

func TestAllocatePortRetriesPastConflict(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"port already allocated"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(crudclient.PortAllocation{ServerHandle: "vps-267179", Port: basePort + attempts - 1, ProjectID: "hello-world-bot"})
	}))
	defer srv.Close()
	crud := crudclient.New(srv.URL, "test-token")

	tool := allocatePortTool(crud)
	out, err := tool.Execute(context.Background(), &coordinator.RunContext{}, map[string]any{"server_handle": "vps-267179", "project_id": "hello-world-bot"})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, basePort+2, out["port"])
}

func TestGetDeployStatusReadsCheckpoint(t *testing.T) {
	require.NoError(t, persistence.Reset())
	require.NoError(t, persistence.Initialize(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { _ = persistence.Reset() })

	store := persistence.NewCheckpointStore()
	ctx := context.Background()

	state := proto.NewGraphState("deploy_hello-world-bot_abcd1234", "corr-1")
	state.DeployStatus = proto.DeploySuccess
	state.DeployedURL = "http://1.2.3.4:8080"
	require.NoError(t, store.Save(ctx, "deploy_hello-world-bot_abcd1234", "verify_deployment", state))

	tool := getDeployStatusTool(store)
	out, err := tool.Execute(ctx, &coordinator.RunContext{}, map[string]any{"job_id": "deploy_hello-world-bot_abcd1234"})
	require.NoError(t, err)
	require.Equal(t, true, out["found"])
	require.Equal(t, string(proto.DeploySuccess), out["status"])
	require.Equal(t, "http://1.2.3.4:8080", out["deployed_url"])
}

func TestGetDeployStatusNotFoundStillQueued(t *testing.T) {
	require.NoError(t, persistence.Reset())
	require.NoError(t, persistence.Initialize(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() { _ = persistence.Reset() })

	store := persistence.NewCheckpointStore()
	tool := getDeployStatusTool(store)
	out, err := tool.Execute(context.Background(), &coordinator.RunContext{}, map[string]any{"job_id": "deploy_unknown_00000000"})
	require.NoError(t, err)
	require.Equal(t, false, out["found"])
	require.Equal(t, "queued", out["status"])
}
