package deploy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/proto"
	"github.com/forgeworks/sdo/internal/redisx"
	"github.com/forgeworks/sdo/internal/testkit"
)

func newTestRedis(t *testing.T) *redisx.Client {
	t.Helper()
	return testkit.NewRedis(t)
}

// respondToNextPlaybookRequest pops the one request the deployer node
// enqueues and publishes a result for it, simulating the external
// playbook runner.
func respondToNextPlaybookRequest(t *testing.T, rdb *redisx.Client, success bool, errMsg string) {
	t.Helper()
	go func() {
		ctx := context.Background()
		res, err := rdb.Raw().BLPop(ctx, 2*time.Second, playbookQueueKey).Result()
		if err != nil || len(res) < 2 {
			return
		}
		var req playbookRequest
		_ = json.Unmarshal([]byte(res[1]), &req)

		result := playbookResult{Success: success, Error: errMsg}
		data, _ := json.Marshal(result)

		// Give the deployer node's Subscribe call a moment to register
		// before the runner publishes its result.
		time.Sleep(50 * time.Millisecond)
		_ = rdb.Raw().Publish(ctx, resultChannel(req.RequestID), data).Err()
	}()
}

func TestDeployerRecordsSuccessfulDeployment(t *testing.T) {
	rdb := newTestRedis(t)

	var patched bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			patched = true
		}
		_ = json.NewEncoder(w).Encode(crudclient.Project{ID: "proj-1"})
	}))
	defer srv.Close()
	crud := crudclient.New(srv.URL, "test-token")

	respondToNextPlaybookRequest(t, rdb, true, "")

	node := DeployerNode(rdb, crud, nil, 2*time.Second)
	state := proto.NewGraphState("t1", "corr-1")
	state.CurrentProject = "proj-1"
	state.AllocatedResources["server_handle"] = "srv-1"
	state.AllocatedResources["port"] = "8080"

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.True(t, patched)
	require.Equal(t, "verify_deployment", node.Next(state))
}

func TestDeployerRoutesToFailureOnPlaybookFailure(t *testing.T) {
	rdb := newTestRedis(t)
	crud := crudclient.New("http://unused", "token")

	respondToNextPlaybookRequest(t, rdb, false, "ansible: unreachable host")

	node := DeployerNode(rdb, crud, nil, 2*time.Second)
	state := proto.NewGraphState("t1", "corr-1")
	state.CurrentProject = "proj-1"
	state.AllocatedResources["server_handle"] = "srv-1"
	state.AllocatedResources["port"] = "8080"

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, proto.DeployFailed, state.DeployStatus)
	require.Equal(t, "handle_failure", node.Next(state))
}

type fakeSecretSetter struct {
	calls map[string]string
}

func (f *fakeSecretSetter) SetSecret(ctx context.Context, owner, repo, name, value string) error {
	f.calls[owner+"/"+repo+":"+name] = value
	return nil
}

func TestDeployerConfiguresCISecretsOnSuccess(t *testing.T) {
	rdb := newTestRedis(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(crudclient.Project{ID: "proj-1"})
	}))
	defer srv.Close()
	crud := crudclient.New(srv.URL, "test-token")

	respondToNextPlaybookRequest(t, rdb, true, "")

	repos := &fakeSecretSetter{calls: map[string]string{}}
	node := DeployerNode(rdb, crud, repos, 2*time.Second)
	state := proto.NewGraphState("t1", "corr-1")
	state.CurrentProject = "proj-1"
	state.AllocatedResources["server_handle"] = "srv-1"
	state.AllocatedResources["port"] = "8080"
	state.AllocatedResources[valueKey("DATABASE_URL")] = "secret-token"
	state.RepositoryInfo["repository_url"] = "https://github.com/acme/hello-world-bot.git"

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, "secret-token", repos.calls["acme/hello-world-bot:DATABASE_URL"])
}

func TestDeployerRejectsMissingAllocation(t *testing.T) {
	rdb := newTestRedis(t)
	crud := crudclient.New("http://unused", "token")

	node := DeployerNode(rdb, crud, nil, time.Second)
	state := proto.NewGraphState("t1", "corr-1")
	state.CurrentProject = "proj-1"

	_, err := node.Run(context.Background(), state)
	require.Error(t, err)
}
