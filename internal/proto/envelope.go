package proto

import "time"

// Command identifies a container control-plane operation (§6 "Container
// control plane (Redis streams)").
type Command string

const (
	CmdCreate      Command = "create"
	CmdSendCommand Command = "send_command"
	CmdSendMessage Command = "send_message"
	CmdSendFile    Command = "send_file"
	CmdStatus      Command = "status"
	CmdLogs        Command = "logs"
	CmdDelete      Command = "delete"
)

// CommandEnvelope is an entry on the cli-agent:commands stream.
type CommandEnvelope struct {
	RequestID string         `json:"request_id"`
	Cmd       Command        `json:"cmd"`
	AgentID   string         `json:"agent_id,omitempty"`
	Payload   map[string]any `json:"payload"`
}

// ResponseEnvelope is an entry on the cli-agent:responses stream, keyed
// by RequestID.
type ResponseEnvelope struct {
	RequestID string         `json:"request_id"`
	OK        bool           `json:"ok"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// AgentStatus is a state transition published on agents:{agent_id}:status.
type AgentStatus string

const (
	AgentInitializing AgentStatus = "initializing"
	AgentIdle         AgentStatus = "idle"
	AgentRunning      AgentStatus = "running"
	AgentErrorState   AgentStatus = "error"
	AgentDeleted      AgentStatus = "deleted"
)

// StatusEvent is published whenever a container's AgentStatus changes.
type StatusEvent struct {
	AgentID   string      `json:"agent_id"`
	Status    AgentStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

// ChatInbound mirrors spec.md §6 "User message payload".
type ChatInbound struct {
	UserID        int64  `json:"user_id"`
	ChatID        int64  `json:"chat_id"`
	MessageID     string `json:"message_id"`
	Text          string `json:"text"`
	CorrelationID string `json:"correlation_id"`
}

// ChatOutbound mirrors spec.md §6 "Outbound message payload".
type ChatOutbound struct {
	UserID        int64  `json:"user_id"`
	ChatID        int64  `json:"chat_id"`
	Text          string `json:"text"`
	CorrelationID string `json:"correlation_id"`
}
