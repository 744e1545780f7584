package coordinator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
)

// ClassifierHints are the minimal signals the gate LLM is given per
// spec.md §4.5 "Intent Classifier (gate)".
type ClassifierHints struct {
	HasCurrentProject     bool
	HasAllocatedResources bool
	LastThreadID          string
}

// classifierOutput is the gate's forced JSON response shape.
type classifierOutput struct {
	Capabilities []string `json:"capabilities"`
	TaskSummary  string   `json:"task_summary"`
}

// Classifier is the cheap-model intent gate. It runs once per new
// thread and is skipped on continuations (spec.md §4.2, §4.5).
type Classifier struct {
	client   llm.Client
	model    string
	registry *Registry
}

// NewClassifier builds a Classifier bound to a cheap model distinct
// from the Coordinator's main model.
func NewClassifier(client llm.Client, model string, registry *Registry) *Classifier {
	return &Classifier{client: client, model: model, registry: registry}
}

const classifierSystemPrompt = `You are an intent classifier for a software-delivery orchestrator.
Given a user's message and minimal context, choose the smallest set of capability
bundles needed to handle it, and write a one-sentence task summary. Respond by
calling the "classify" tool; never answer the user directly.
Known capabilities: deploy, infrastructure, project_management, engineering, diagnose, admin.
Prefer 2-3 capabilities at most. When unsure, default to project_management.`

var classifyToolSpec = llm.ToolSpec{
	Name:        "classify",
	Description: "Report the initial capability set and a task summary for this thread.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"capabilities": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"task_summary": map[string]any{"type": "string"},
		},
		"required": []string{"capabilities", "task_summary"},
	},
}

// Classify runs the gate for the first message of a new thread and
// returns the initial active-capability set plus a task summary.
func (c *Classifier) Classify(ctx context.Context, userMessage string, hints ClassifierHints) (map[string]bool, string, error) {
	hintLine := fmt.Sprintf("has_current_project=%t has_allocated_resources=%t last_thread_id=%q",
		hints.HasCurrentProject, hints.HasAllocatedResources, hints.LastThreadID)

	resp, err := c.client.Complete(ctx, llm.Request{
		Model:  c.model,
		System: classifierSystemPrompt,
		Messages: []proto.Message{
			proto.NewUserMessage(hintLine + "\n\nUser message: " + userMessage),
		},
		Tools: []llm.ToolSpec{classifyToolSpec},
	})
	if err != nil {
		return nil, "", fmt.Errorf("classifier: llm call failed: %w", err)
	}
	if len(resp.ToolCalls) == 0 {
		return nil, "", errs.New(errs.KindInvariant, "classifier: model did not call classify")
	}

	out, err := parseClassifierArgs(resp.ToolCalls[0].Args)
	if err != nil {
		return nil, "", err
	}

	caps := make([]Capability, 0, len(out.Capabilities))
	for _, name := range out.Capabilities {
		caps = append(caps, Capability(name))
	}
	if unknown, ok := c.registry.Validate(caps); !ok {
		return nil, "", errs.New(errs.KindUserActionable, "classifier: unknown capability %q", unknown)
	}

	active := make(map[string]bool, len(caps))
	for _, c := range caps {
		active[string(c)] = true
	}
	return active, out.TaskSummary, nil
}

func parseClassifierArgs(args map[string]any) (classifierOutput, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return classifierOutput{}, fmt.Errorf("classifier: failed to re-marshal tool args: %w", err)
	}
	var out classifierOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return classifierOutput{}, fmt.Errorf("classifier: failed to parse classify args: %w", err)
	}
	if len(out.Capabilities) == 0 {
		return classifierOutput{}, errs.New(errs.KindInvariant, "classifier: capabilities must not be empty")
	}
	return out, nil
}

// Node wraps Classify as a graph node that gates into the Coordinator.
// Intended for use only as the entry node of a fresh thread's graph;
// continuations skip straight to the Coordinator node per spec.md §4.2.
func (c *Classifier) Node(hintsFor func(*proto.GraphState) ClassifierHints) graph.Node {
	return graph.Node{
		Name: "intent_classifier",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			if len(state.Messages) == 0 {
				return proto.Update{}, errs.New(errs.KindInvariant, "intent_classifier: no user message to classify")
			}
			lastMsg := state.Messages[len(state.Messages)-1]
			active, summary, err := c.Classify(ctx, lastMsg.Text, hintsFor(state))
			if err != nil {
				return proto.Update{}, err
			}
			intent := summary
			return proto.Update{
				ActiveCapabilities: active,
				ProjectIntent:      &intent,
			}, nil
		},
		Edges: []string{"coordinator"},
	}
}
