package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
	"github.com/forgeworks/sdo/internal/testkit"
)

type recordingOutbound struct {
	sent []string
}

func (r *recordingOutbound) Publish(_ context.Context, _, _ int64, text, _ string) error {
	r.sent = append(r.sent, text)
	return nil
}

func newTestRegistry() *Registry {
	reg := NewRegistry()
	RegisterBaseTools(reg)
	reg.RegisterCapability(CapabilityProjectManagement, "project management", NewToolFunc(
		"list_projects", "List the user's projects.", map[string]any{"type": "object"},
		func(_ context.Context, _ *RunContext, _ map[string]any) (map[string]any, error) {
			return map[string]any{"projects": []string{"hello-world-bot"}}, nil
		},
	))
	return reg
}

func TestCoordinatorRespondsAndAwaitsUser(t *testing.T) {
	reg := newTestRegistry()
	client := testkit.NewScriptedLLM(llm.Response{
		Text: "",
		ToolCalls: []proto.ToolCall{
			{ID: "1", Name: "respond_to_user", Args: map[string]any{"message": "You have one project: hello-world-bot", "awaiting_response": true}},
		},
	})
	out := &recordingOutbound{}

	co := New(client, "coordinator-model", reg, func(s *proto.GraphState) *RunContext {
		return &RunContext{ThreadID: s.ThreadID, Outbound: out}
	})

	state := &proto.GraphState{ThreadID: "t1", ActiveCapabilities: map[string]bool{"project_management": true}}
	state.Messages = []proto.Message{proto.NewUserMessage("what projects do I have?")}

	node := co.Node()
	update, err := node.Run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))

	require.True(t, state.AwaitingUserResponse)
	require.Equal(t, []string{"You have one project: hello-world-bot"}, out.sent)
	require.Equal(t, graph.End, co.route(state))
}

func TestCoordinatorFinishesTaskOnConfirmation(t *testing.T) {
	reg := newTestRegistry()
	client := testkit.NewScriptedLLM(llm.Response{
		ToolCalls: []proto.ToolCall{{ID: "1", Name: "finish_task", Args: map[string]any{"summary": "listed projects"}}},
	})

	co := New(client, "coordinator-model", reg, func(s *proto.GraphState) *RunContext {
		return &RunContext{ThreadID: s.ThreadID}
	})

	state := &proto.GraphState{ThreadID: "t1"}
	state.Messages = []proto.Message{proto.NewUserMessage("thanks")}

	update, err := co.run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.True(t, state.UserConfirmedComplete)
	require.Equal(t, graph.End, co.route(state))
}

func TestCoordinatorCapsIterationsAtSafetyLimit(t *testing.T) {
	reg := newTestRegistry()
	co := New(nil, "coordinator-model", reg, nil)

	state := &proto.GraphState{ThreadID: "t1", POIterations: proto.MaxPOIterations}
	require.Equal(t, graph.End, co.route(state))
}

func TestRequestCapabilitiesRejectsUnknown(t *testing.T) {
	reg := newTestRegistry()
	client := testkit.NewScriptedLLM(llm.Response{
		ToolCalls: []proto.ToolCall{{ID: "1", Name: "request_capabilities", Args: map[string]any{"capabilities": []any{"not_a_capability"}, "reason": "testing"}}},
	})

	co := New(client, "coordinator-model", reg, func(s *proto.GraphState) *RunContext {
		return &RunContext{ThreadID: s.ThreadID, Registry: reg}
	})

	state := &proto.GraphState{ThreadID: "t1"}
	state.Messages = []proto.Message{proto.NewUserMessage("do something unsupported")}

	update, err := co.run(context.Background(), state)
	require.NoError(t, err)
	require.NoError(t, state.Apply(update))
	require.Len(t, state.Messages, 2)
	toolMsg := state.Messages[1]
	require.NotNil(t, toolMsg.ToolResult)
	require.NotEmpty(t, toolMsg.ToolResult.Error)
}
