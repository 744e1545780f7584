package deploy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/proto"
)

type stubFetcher struct {
	content string
	err     error
}

func (s stubFetcher) FetchEnvExample(context.Context, string) (string, error) {
	return s.content, s.err
}

func TestFetchProjectConfigPopulatesRepositoryInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(crudclient.Project{
			ID: "proj-1", Name: "hello-world-bot", RepositoryURL: "https://github.com/acme/hello-world-bot",
		})
	}))
	defer srv.Close()

	crud := crudclient.New(srv.URL, "test-token")
	node := FetchProjectConfigNode(crud, stubFetcher{content: "DATABASE_URL=\nSTRIPE_KEY=\n"})

	state := proto.NewGraphState("t1", "corr-1")
	state.CurrentProject = "proj-1"

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Equal(t, "hello-world-bot", state.RepositoryInfo["project_name"])
	require.Contains(t, state.RepositoryInfo["env_example"], "STRIPE_KEY")
}

func TestFetchProjectConfigRejectsMissingCurrentProject(t *testing.T) {
	crud := crudclient.New("http://unused", "token")
	node := FetchProjectConfigNode(crud, stubFetcher{})

	state := proto.NewGraphState("t1", "corr-1")
	_, err := node.Run(context.Background(), state)
	require.Error(t, err)
	require.Equal(t, errs.KindInvariant, errs.KindOf(err))
}
