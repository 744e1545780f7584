package deploy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/proto"
)

func stateWithProbeTarget(t *testing.T, srv *httptest.Server) *proto.GraphState {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	state := proto.NewGraphState("t1", "corr-1")
	state.AllocatedResources["server_ip"] = u.Hostname()
	state.AllocatedResources["port"] = u.Port()
	return state
}

func TestVerifyDeploymentSucceedsOnHealthyProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	node := VerifyDeploymentNode(http.DefaultClient, 2*time.Second)
	state := stateWithProbeTarget(t, srv)

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, proto.DeploySuccess, state.DeployStatus)
	require.NotEmpty(t, state.DeployedURL)
}

func TestVerifyDeploymentRoutesToFailureOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	node := VerifyDeploymentNode(http.DefaultClient, 2*time.Second)
	state := stateWithProbeTarget(t, srv)

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, proto.DeployFailed, state.DeployStatus)
	require.Equal(t, "handle_failure", node.Next(state))
}

func TestVerifyDeploymentRejectsMissingAllocation(t *testing.T) {
	node := VerifyDeploymentNode(http.DefaultClient, time.Second)
	state := proto.NewGraphState("t1", "corr-1")

	_, err := node.Run(context.Background(), state)
	require.Error(t, err)
}
