// Package providers contains the raw, middleware-free LLM client
// implementations for each supported provider, ported from the
// teacher's pkg/agent/internal/llmimpl/* packages onto this module's
// internal/llm.Client interface.
package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
)

// AnthropicClient wraps the Anthropic SDK to implement llm.Client.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient builds a raw client bound to model — middleware is
// applied by the caller (internal/llm.Chain), matching the teacher's
// "raw client, middleware applied at higher level" convention.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0), // retries handled by internal/llm/middleware/retry
		),
		model: model,
	}
}

// Complete implements llm.Client.
func (c *AnthropicClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case proto.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Text)))
		case proto.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Text)))
		case proto.RoleTool:
			if m.ToolResult != nil {
				b, _ := json.Marshal(m.ToolResult.Result)
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewToolResultBlock(m.ToolResult.ToolCallID, string(b), m.ToolResult.Error != "")))
			}
		}
	}

	tools := make([]anthropic.ToolUnionParam, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{Properties: t.Parameters},
			},
		})
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages:  messages,
		Tools:     tools,
	})
	if err != nil {
		return llm.Response{}, fmt.Errorf("anthropic completion failed: %w", err)
	}

	out := llm.Response{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
		StopReason:   string(resp.StopReason),
	}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Text += variant.Text
		case anthropic.ToolUseBlock:
			var args map[string]any
			_ = json.Unmarshal(variant.Input, &args)
			out.ToolCalls = append(out.ToolCalls, proto.ToolCall{ID: variant.ID, Name: variant.Name, Args: args})
		}
	}
	return out, nil
}
