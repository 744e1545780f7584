package deploy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/proto"
)

func TestSecretResolverResolvesEachClass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(crudclient.Project{
			ID:      "proj-1",
			Secrets: map[string]string{"STRIPE_KEY": "sk_live_123"},
		})
	}))
	defer srv.Close()

	crud := crudclient.New(srv.URL, "test-token")
	node := SecretResolverNode(crud)

	state := proto.NewGraphState("t1", "corr-1")
	state.CurrentProject = "proj-1"
	state.RepositoryInfo["project_name"] = "hello-world-bot"
	state.AllocatedResources[classKey("DATABASE_URL")] = string(EnvClassInfra)
	state.AllocatedResources[classKey("APP_NAME")] = string(EnvClassComputed)
	state.AllocatedResources[classKey("STRIPE_KEY")] = string(EnvClassUser)

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))

	require.NotEmpty(t, state.AllocatedResources[valueKey("DATABASE_URL")])
	require.Equal(t, "hello-world-bot", state.AllocatedResources[valueKey("APP_NAME")])
	require.Equal(t, "sk_live_123", state.AllocatedResources[valueKey("STRIPE_KEY")])
	require.Empty(t, state.MissingUserSecrets)
}

func TestSecretResolverCollectsMissingUserSecrets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(crudclient.Project{ID: "proj-1"})
	}))
	defer srv.Close()

	crud := crudclient.New(srv.URL, "test-token")
	node := SecretResolverNode(crud)

	state := proto.NewGraphState("t1", "corr-1")
	state.CurrentProject = "proj-1"
	state.AllocatedResources[classKey("STRIPE_KEY")] = string(EnvClassUser)

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, []string{"STRIPE_KEY"}, state.MissingUserSecrets)
}
