package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
)

// OllamaClient wraps the Ollama API client to implement llm.Client,
// ported from pkg/agent/internal/llmimpl/ollama.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient builds a raw client against the Ollama server at
// hostURL (e.g. "http://localhost:11434").
func NewOllamaClient(hostURL, model string) *OllamaClient {
	parsed, err := url.Parse(hostURL)
	if err != nil {
		parsed, _ = url.Parse("http://localhost:11434")
	}
	return &OllamaClient{
		client: api.NewClient(parsed, http.DefaultClient),
		model:  model,
	}
}

// Complete implements llm.Client.
func (c *OllamaClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	messages := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		switch m.Role {
		case proto.RoleUser:
			messages = append(messages, api.Message{Role: "user", Content: m.Text})
		case proto.RoleAssistant:
			messages = append(messages, api.Message{Role: "assistant", Content: m.Text})
		case proto.RoleTool:
			if m.ToolResult != nil {
				messages = append(messages, api.Message{Role: "tool", Content: m.ToolResult.Error})
			}
		}
	}

	stream := false
	var out llm.Response
	chatErr := c.client.Chat(ctx, &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
	}, func(resp api.ChatResponse) error {
		out.Text += resp.Message.Content
		out.InputTokens = resp.PromptEvalCount
		out.OutputTokens = resp.EvalCount
		return nil
	})
	if chatErr != nil {
		return llm.Response{}, fmt.Errorf("ollama completion failed: %w", chatErr)
	}
	return out, nil
}
