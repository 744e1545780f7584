// Package llm provides a provider-agnostic LLM client interface and the
// middleware chain that wraps it with validation, metrics, circuit
// breaking, retry, rate limiting and timeouts — the same composition
// the teacher builds in pkg/agent/factory.go, generalized here from a
// fixed coder/architect/pm agent-type roster to the Coordinator,
// Classifier, EnvAnalyzer and Architect model roles this system needs
// (spec.md §4.5, §4.6, §4.7).
package llm

import (
	"context"

	"github.com/forgeworks/sdo/internal/proto"
)

// Request is a single completion request against a model.
type Request struct {
	Model      string
	System     string
	Messages   []proto.Message
	Tools      []ToolSpec
	MaxTokens  int
	Temperature float64
}

// ToolSpec describes one tool the model may call.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

// Response is a single completion response.
type Response struct {
	Text         string
	ToolCalls    []proto.ToolCall
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// Client is the minimal surface every provider implementation and every
// middleware stage must satisfy.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// ClientFunc adapts a plain function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (Response, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Middleware wraps a Client with additional behavior.
type Middleware func(Client) Client

// Chain applies middlewares to raw in order, so that the first
// middleware listed is the outermost layer seen by callers — matching
// the teacher's llm.Chain(raw, validator, metrics, circuit, retry, ...)
// call order in pkg/agent/factory.go.
func Chain(raw Client, mws ...Middleware) Client {
	client := raw
	for i := len(mws) - 1; i >= 0; i-- {
		client = mws[i](client)
	}
	return client
}
