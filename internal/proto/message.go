// Package proto defines the wire types shared across the orchestrator:
// conversation messages, the Graph State tagged record (spec.md §3), and
// the container control-plane envelopes (spec.md §6). It plays the role
// the teacher's pkg/proto plays for its AgentMsg envelope, generalized
// from a single-purpose build-pipeline protocol to this system's chat +
// job + container contracts.
package proto

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a Message in the conversation history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single tool invocation requested by an assistant turn.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the outcome of executing a ToolCall, appended as a
// tool-role Message. Error/ErrorKind are populated per spec.md §7
// "Tool-layer errors become tool-result messages with {error, error_type}".
type ToolResult struct {
	ToolCallID string         `json:"tool_call_id"`
	Result     map[string]any `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	ErrorKind  string         `json:"error_type,omitempty"`
}

// Message is one entry in the Graph State's append-only conversation
// history.
type Message struct {
	ID         string       `json:"id"`
	Role       Role         `json:"role"`
	Text       string       `json:"text,omitempty"`
	ToolCalls  []ToolCall   `json:"tool_calls,omitempty"`
	ToolResult *ToolResult  `json:"tool_result,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// NewUserMessage creates a user-role message.
func NewUserMessage(text string) Message {
	return Message{ID: uuid.NewString(), Role: RoleUser, Text: text, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage creates an assistant-role message, optionally
// carrying tool calls the coordinator loop must execute next.
func NewAssistantMessage(text string, calls []ToolCall) Message {
	return Message{ID: uuid.NewString(), Role: RoleAssistant, Text: text, ToolCalls: calls, Timestamp: time.Now().UTC()}
}

// NewToolMessage creates a tool-role message carrying the result of one
// tool call.
func NewToolMessage(result ToolResult) Message {
	return Message{ID: uuid.NewString(), Role: RoleTool, ToolResult: &result, Timestamp: time.Now().UTC()}
}
