package coordinator

import (
	"context"
	"fmt"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
)

// SystemPrompt builds the Coordinator's system prompt for the current
// turn, naming the tools bound this turn (spec.md §4.5 "Agentic loop"
// step 1).
func SystemPrompt(tools []Tool) string {
	prompt := "You are the Coordinator (Product Owner) of an autonomous software-delivery orchestrator. " +
		"You act only through your bound tools; you never write code or run deployments yourself. " +
		"Call finish_task only once the user has clearly confirmed the task is complete. " +
		"Call request_capabilities before attempting anything outside your currently bound tools.\n\nBound tools this turn:\n"
	for _, t := range tools {
		prompt += fmt.Sprintf("- %s: %s\n", t.Name(), t.Description())
	}
	return prompt
}

// Coordinator is the Product Owner graph node (spec.md §4.5). One
// instance is shared by every thread's execution; per-call identity
// lives in RunContext, not on the Coordinator itself.
type Coordinator struct {
	client   llm.Client
	model    string
	registry *Registry
	rcFor    func(state *proto.GraphState) *RunContext
}

// New builds a Coordinator node bound to client (already wrapped with
// the full middleware chain by internal/llm.Factory) and registry.
// rcFor derives the per-call RunContext from the current graph state;
// callers typically close over shared Outbound/Knowledge dependencies
// and read identity fields off state.
func New(client llm.Client, model string, registry *Registry, rcFor func(*proto.GraphState) *RunContext) *Coordinator {
	return &Coordinator{client: client, model: model, registry: registry, rcFor: rcFor}
}

// Node returns the graph.Node wiring for the Coordinator's agentic
// loop (spec.md §4.5 steps 1-4). Edges point to itself (re-enter) and
// END; the router, not a static edge, decides between them.
func (c *Coordinator) Node() graph.Node {
	return graph.Node{
		Name:  "coordinator",
		Run:   c.run,
		Next:  c.route,
		Edges: []string{"coordinator", graph.End},
	}
}

func (c *Coordinator) run(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
	rc := c.rcFor(state)

	tools := c.registry.ToolsFor(state.ActiveCapabilities)
	req := llm.Request{
		Model:    c.model,
		System:   SystemPrompt(tools),
		Messages: state.Messages,
		Tools:    toLLMSpecs(tools),
	}

	resp, err := c.client.Complete(ctx, req)
	if err != nil {
		return proto.Update{}, fmt.Errorf("coordinator: llm call failed: %w", err)
	}

	assistantMsg := proto.NewAssistantMessage(resp.Text, resp.ToolCalls)
	update := proto.Update{AppendMessages: []proto.Message{assistantMsg}}

	if len(resp.ToolCalls) == 0 {
		nextIter := state.POIterations + 1
		update.POIterations = &nextIter
		return update, nil
	}

	toolUpdate, err := c.executeTools(ctx, rc, resp.ToolCalls)
	if err != nil {
		return proto.Update{}, err
	}
	update.AppendMessages = append(update.AppendMessages, toolUpdate.AppendMessages...)
	update.ActiveCapabilities = toolUpdate.ActiveCapabilities
	update.AwaitingUserResponse = toolUpdate.AwaitingUserResponse
	update.UserConfirmedComplete = toolUpdate.UserConfirmedComplete

	nextIter := state.POIterations + 1
	update.POIterations = &nextIter
	return update, nil
}

// executeTools runs every tool call the assistant produced this turn,
// appending one tool-role message per call (spec.md §4.5 step 3).
func (c *Coordinator) executeTools(ctx context.Context, rc *RunContext, calls []proto.ToolCall) (proto.Update, error) {
	update := proto.Update{}
	awaiting := false
	confirmed := false
	var grantedCaps map[string]bool

	for _, call := range calls {
		tool, ok := c.registry.lookup(call.Name)
		if !ok {
			update.AppendMessages = append(update.AppendMessages, proto.NewToolMessage(proto.ToolResult{
				ToolCallID: call.ID,
				Error:      fmt.Sprintf("tool %q is not bound this turn", call.Name),
				ErrorKind:  string(errs.KindUserActionable),
			}))
			continue
		}

		result, err := tool.Execute(ctx, rc, call.Args)
		if err != nil {
			update.AppendMessages = append(update.AppendMessages, proto.NewToolMessage(proto.ToolResult{
				ToolCallID: call.ID,
				Error:      err.Error(),
				ErrorKind:  string(errs.KindOf(err)),
			}))
			continue
		}

		update.AppendMessages = append(update.AppendMessages, proto.NewToolMessage(proto.ToolResult{
			ToolCallID: call.ID,
			Result:     result,
		}))

		switch call.Name {
		case "respond_to_user":
			if aw, _ := result["awaiting_response"].(bool); aw {
				awaiting = true
			}
		case "finish_task":
			if done, _ := result["confirmed_complete"].(bool); done {
				confirmed = true
			}
		case "request_capabilities":
			if granted, ok := result["granted"].(map[string]any); ok {
				if grantedCaps == nil {
					grantedCaps = make(map[string]bool, len(granted))
				}
				for name := range granted {
					grantedCaps[name] = true
				}
			}
		}
	}

	if awaiting {
		update.AwaitingUserResponse = &awaiting
	}
	if confirmed {
		update.UserConfirmedComplete = &confirmed
	}
	if grantedCaps != nil {
		update.ActiveCapabilities = grantedCaps
	}
	return update, nil
}

// route implements spec.md §4.5 step 4's routing table.
func (c *Coordinator) route(state *proto.GraphState) string {
	switch {
	case state.UserConfirmedComplete:
		return graph.End
	case state.AwaitingUserResponse:
		return graph.End
	case state.POIterations >= proto.MaxPOIterations:
		return graph.End
	default:
		return "coordinator"
	}
}
