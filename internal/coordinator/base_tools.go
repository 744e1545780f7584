package coordinator

import (
	"context"
	"fmt"

	"github.com/forgeworks/sdo/internal/errs"
)

// RegisterBaseTools wires the four always-available tools named in
// spec.md §4.5 "Base tools" into reg.
func RegisterBaseTools(reg *Registry) {
	reg.RegisterBaseTool(respondToUserTool())
	reg.RegisterBaseTool(searchKnowledgeTool())
	reg.RegisterBaseTool(requestCapabilitiesTool())
	reg.RegisterBaseTool(finishTaskTool())
}

func respondToUserTool() Tool {
	return NewToolFunc(
		"respond_to_user",
		"Send a message to the end user over the chat transport.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message":           map[string]any{"type": "string"},
				"awaiting_response": map[string]any{"type": "boolean"},
			},
			"required": []string{"message"},
		},
		func(ctx context.Context, rc *RunContext, args map[string]any) (map[string]any, error) {
			message, _ := args["message"].(string)
			if message == "" {
				return nil, errs.New(errs.KindInvariant, "respond_to_user: message must not be empty")
			}
			awaiting, _ := args["awaiting_response"].(bool)

			if rc.Outbound == nil {
				return nil, errs.New(errs.KindConfig, "respond_to_user: no outbound sink configured")
			}
			if err := rc.Outbound.Publish(ctx, rc.UserID, rc.ChatID, message, rc.CorrelationID); err != nil {
				return nil, errs.Wrap(errs.KindTransient, fmt.Errorf("respond_to_user: publish failed: %w", err))
			}
			return map[string]any{
				"sent":              true,
				"awaiting_response": awaiting,
			}, nil
		},
	)
}

func searchKnowledgeTool() Tool {
	return NewToolFunc(
		"search_knowledge",
		"Search indexed documentation, code, conversation history, or logs for relevant context.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
				"scope": map[string]any{"type": "string", "enum": []string{"docs", "code", "history", "logs", "all"}},
			},
			"required": []string{"query"},
		},
		func(ctx context.Context, rc *RunContext, args map[string]any) (map[string]any, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return nil, errs.New(errs.KindInvariant, "search_knowledge: query must not be empty")
			}
			scope, _ := args["scope"].(string)
			if scope == "" {
				scope = "all"
			}
			switch scope {
			case "docs", "code", "history", "logs", "all":
			default:
				return nil, errs.New(errs.KindInvariant, "search_knowledge: unknown scope %q", scope)
			}

			if rc.Knowledge == nil {
				return map[string]any{"results": []KnowledgeResult{}}, nil
			}
			results, err := rc.Knowledge.Search(ctx, query, scope, 10)
			if err != nil {
				return nil, errs.Wrap(errs.KindTransient, fmt.Errorf("search_knowledge: search failed: %w", err))
			}
			return map[string]any{"results": results}, nil
		},
	)
}

func requestCapabilitiesTool() Tool {
	return NewToolFunc(
		"request_capabilities",
		"Request additional capability bundles be exposed to the Coordinator on the next turn.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"capabilities": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"reason":       map[string]any{"type": "string"},
			},
			"required": []string{"capabilities", "reason"},
		},
		func(ctx context.Context, rc *RunContext, args map[string]any) (map[string]any, error) {
			raw, _ := args["capabilities"].([]any)
			if len(raw) == 0 {
				return nil, errs.New(errs.KindInvariant, "request_capabilities: capabilities must not be empty")
			}
			caps := make([]Capability, 0, len(raw))
			for _, v := range raw {
				s, _ := v.(string)
				caps = append(caps, Capability(s))
			}
			if unknown, ok := rc.Registry.Validate(caps); !ok {
				return nil, errs.New(errs.KindUserActionable, "request_capabilities: unknown capability %q", unknown)
			}
			granted := make(map[string]any, len(caps))
			for _, c := range caps {
				granted[string(c)] = true
			}
			return map[string]any{"granted": granted}, nil
		},
	)
}

func finishTaskTool() Tool {
	return NewToolFunc(
		"finish_task",
		"Mark the current thread's task complete. Only valid after the user has confirmed completion.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{"type": "string"},
			},
			"required": []string{"summary"},
		},
		func(ctx context.Context, rc *RunContext, args map[string]any) (map[string]any, error) {
			summary, _ := args["summary"].(string)
			if summary == "" {
				return nil, errs.New(errs.KindInvariant, "finish_task: summary must not be empty")
			}
			return map[string]any{"confirmed_complete": true, "summary": summary}, nil
		},
	)
}
