package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
)

// GoogleClient wraps google.golang.org/genai to implement llm.Client,
// ported from pkg/agent/internal/llmimpl/google. The underlying SDK
// client requires a context to construct, so construction is deferred
// to the first Complete call, matching the teacher's lazy-init pattern.
type GoogleClient struct {
	client *genai.Client
	apiKey string
	model  string
}

// NewGoogleClient builds a raw client bound to model.
func NewGoogleClient(apiKey, model string) *GoogleClient {
	return &GoogleClient{apiKey: apiKey, model: model}
}

// Complete implements llm.Client.
func (c *GoogleClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if c.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return llm.Response{}, fmt.Errorf("failed to create gemini client: %w", err)
		}
		c.client = client
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := genai.RoleUser
		if m.Role == proto.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
	for _, t := range req.Tools {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		})
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.System, genai.RoleUser),
	}
	if len(declarations) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: declarations}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return llm.Response{}, fmt.Errorf("gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return llm.Response{}, fmt.Errorf("gemini completion returned no candidates")
	}

	out := llm.Response{}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			var m map[string]any
			_ = json.Unmarshal(args, &m)
			out.ToolCalls = append(out.ToolCalls, proto.ToolCall{Name: part.FunctionCall.Name, Args: m})
		}
	}
	return out, nil
}
