package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
)

func TestNewRedisPingSucceeds(t *testing.T) {
	rdb := NewRedis(t)
	require.NoError(t, rdb.Ping(context.Background()))
}

func TestScriptedLLMCyclesThroughResponsesAndHoldsOnLast(t *testing.T) {
	client := NewScriptedLLM(
		llm.Response{Text: "first"},
		llm.Response{Text: "second"},
	)

	r1, err := client.Complete(context.Background(), llm.Request{})
	require.NoError(t, err)
	require.Equal(t, "first", r1.Text)

	r2, err := client.Complete(context.Background(), llm.Request{})
	require.NoError(t, err)
	require.Equal(t, "second", r2.Text)

	r3, err := client.Complete(context.Background(), llm.Request{})
	require.NoError(t, err)
	require.Equal(t, "second", r3.Text, "must hold on the last scripted response")

	require.Equal(t, 3, client.CallCount())
}

func TestAssertionsOnGraphState(t *testing.T) {
	state := proto.NewGraphState("t1", "corr-1")
	state.Messages = append(state.Messages, proto.NewAssistantMessage("deployment queued", nil))
	status := proto.DeploySuccess
	require.NoError(t, state.Apply(proto.Update{DeployStatus: &status}))

	AssertDeployStatus(t, state, proto.DeploySuccess)
	AssertLastMessageRole(t, state, proto.RoleAssistant)
	AssertLastMessageContains(t, state, "queued")
	AssertMutuallyExclusive(t, state)
}
