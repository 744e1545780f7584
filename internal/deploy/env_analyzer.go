package deploy

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
)

const envAnalyzerSystemPrompt = `You classify deployment environment variables for a software project.
For every variable name given, decide exactly one class:
  infra     - auto-generated internal values: database/cache URLs, internal app secret keys, random tokens.
  computed  - derived from the project itself: application name, environment label, backend URL template.
  user      - external API keys or values only a human can supply: external bot tokens, payment keys, etc.
When uncertain, you MUST default to "user" - ask too much rather than leak an invalid value.
Respond only by calling the classify_env_vars tool.`

var classifyEnvVarsSpec = llm.ToolSpec{
	Name:        "classify_env_vars",
	Description: "Report the class of every given environment variable.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"classifications": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": "string",
					"enum": []string{"infra", "computed", "user"},
				},
			},
		},
		"required": []string{"classifications"},
	},
}

// EnvAnalyzerNode builds the env_analyzer graph node (spec.md §4.6).
func EnvAnalyzerNode(client llm.Client, model string) graph.Node {
	return graph.Node{
		Name: "env_analyzer",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			envExample := state.RepositoryInfo["env_example"]
			names := envVarNames(envExample)
			if len(names) == 0 {
				return proto.Update{}, nil
			}

			resp, err := client.Complete(ctx, llm.Request{
				Model:  model,
				System: envAnalyzerSystemPrompt,
				Messages: []proto.Message{
					proto.NewUserMessage(fmt.Sprintf("Project: %s\n\n.env.example:\n%s", state.RepositoryInfo["project_name"], envExample)),
				},
				Tools: []llm.ToolSpec{classifyEnvVarsSpec},
			})
			if err != nil {
				return proto.Update{}, fmt.Errorf("env_analyzer: llm call failed: %w", err)
			}
			if len(resp.ToolCalls) == 0 {
				return proto.Update{}, errs.New(errs.KindInvariant, "env_analyzer: model did not call classify_env_vars")
			}

			classes, err := parseClassifications(resp.ToolCalls[0].Args)
			if err != nil {
				return proto.Update{}, err
			}

			resources := make(map[string]string, len(names))
			for _, name := range names {
				class, ok := classes[name]
				if !ok || (class != EnvClassInfra && class != EnvClassComputed && class != EnvClassUser) {
					class = EnvClassUser // default to the safer class per spec.md §4.6
				}
				resources[classKey(name)] = string(class)
			}
			return proto.Update{AllocatedResources: resources}, nil
		},
		Edges:     []string{"secret_resolver"},
		OnFailure: "handle_failure",
	}
}

func parseClassifications(args map[string]any) (map[string]EnvClass, error) {
	raw, _ := args["classifications"].(map[string]any)
	if raw == nil {
		return nil, errs.New(errs.KindInvariant, "env_analyzer: classifications missing from tool call")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("env_analyzer: failed to re-marshal classifications: %w", err)
	}
	var asStrings map[string]string
	if err := json.Unmarshal(data, &asStrings); err != nil {
		return nil, fmt.Errorf("env_analyzer: failed to parse classifications: %w", err)
	}
	out := make(map[string]EnvClass, len(asStrings))
	for name, class := range asStrings {
		out[name] = EnvClass(class)
	}
	return out, nil
}
