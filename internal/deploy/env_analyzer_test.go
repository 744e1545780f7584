package deploy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
	"github.com/forgeworks/sdo/internal/testkit"
)

func TestEnvAnalyzerClassifiesVariables(t *testing.T) {
	client := testkit.NewScriptedLLM(llm.Response{ToolCalls: []proto.ToolCall{
		{ID: "1", Name: "classify_env_vars", Args: map[string]any{
			"classifications": map[string]any{
				"DATABASE_URL": "infra",
				"APP_NAME":     "computed",
				"STRIPE_KEY":   "user",
			},
		}},
	}})

	node := EnvAnalyzerNode(client, "cheap-model")
	state := proto.NewGraphState("t1", "corr-1")
	state.RepositoryInfo["env_example"] = "DATABASE_URL=\nAPP_NAME=\nSTRIPE_KEY=\n"

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))

	require.Equal(t, "infra", state.AllocatedResources[classKey("DATABASE_URL")])
	require.Equal(t, "computed", state.AllocatedResources[classKey("APP_NAME")])
	require.Equal(t, "user", state.AllocatedResources[classKey("STRIPE_KEY")])
}

func TestEnvAnalyzerDefaultsUnclassifiedToUser(t *testing.T) {
	client := testkit.NewScriptedLLM(llm.Response{ToolCalls: []proto.ToolCall{
		{ID: "1", Name: "classify_env_vars", Args: map[string]any{
			"classifications": map[string]any{
				"DATABASE_URL": "infra",
			},
		}},
	}})

	node := EnvAnalyzerNode(client, "cheap-model")
	state := proto.NewGraphState("t1", "corr-1")
	state.RepositoryInfo["env_example"] = "DATABASE_URL=\nMYSTERY_TOKEN=\n"

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))

	require.Equal(t, "user", state.AllocatedResources[classKey("MYSTERY_TOKEN")])
}

func TestEnvAnalyzerSkipsWhenNoEnvExample(t *testing.T) {
	node := EnvAnalyzerNode(testkit.NewScriptedLLM(), "cheap-model")
	state := proto.NewGraphState("t1", "corr-1")

	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.Nil(t, update.AllocatedResources)
}
