package engineering

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
	"github.com/forgeworks/sdo/internal/testkit"
)

type stubRepoCreator struct {
	url     string
	secrets map[string]string
}

func (s *stubRepoCreator) CreateRepository(context.Context, string, bool) (string, error) {
	return s.url, nil
}

func (s *stubRepoCreator) SetSecret(_ context.Context, _, _, name, value string) error {
	if s.secrets == nil {
		s.secrets = map[string]string{}
	}
	s.secrets[name] = value
	return nil
}

func TestArchitectCreatesRepoAndRecordsPlan(t *testing.T) {
	var patchedURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			patchedURL, _ = body["repository_url"].(string)
		}
		_ = json.NewEncoder(w).Encode(crudclient.Project{ID: "proj-1", Name: "hello-world-bot", Slug: "hello-world-bot", Template: "telegram-bot"})
	}))
	defer srv.Close()
	crud := crudclient.New(srv.URL, "test-token")

	client := testkit.NewScriptedLLM(llm.Response{ToolCalls: []proto.ToolCall{
		{ID: "1", Name: "plan_project", Args: map[string]any{
			"modules":                []any{"telegram", "postgres"},
			"developer_instructions": "Wire up the /start handler.",
			"deployment_hints":       "Needs DATABASE_URL.",
		}},
	}})
	repos := &stubRepoCreator{url: "https://github.com/acme/hello-world-bot.git"}

	node := ArchitectNode(client, "architect-model", crud, repos)
	state := proto.NewGraphState("t1", "corr-1")
	state.CurrentProject = "proj-1"
	state.ProjectSpec = "Build a Telegram echo bot."

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))

	require.Equal(t, "https://github.com/acme/hello-world-bot.git", patchedURL)
	require.Equal(t, "telegram,postgres", state.RepositoryInfo["selected_modules"])
	require.Equal(t, proto.EngineeringWorking, state.EngineeringStatus)
}
