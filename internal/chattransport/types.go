package chattransport

// InboundMessage is a user message payload arriving from the chat
// transport front-end (spec.md §6).
type InboundMessage struct {
	UserID        int64  `json:"user_id"`
	ChatID        int64  `json:"chat_id"`
	MessageID     string `json:"message_id"`
	Text          string `json:"text"`
	CorrelationID string `json:"correlation_id"`
}

// OutboundMessage is a reply payload destined for the chat transport
// front-end (spec.md §6).
type OutboundMessage struct {
	UserID        int64  `json:"user_id"`
	ChatID        int64  `json:"chat_id"`
	Text          string `json:"text"`
	CorrelationID string `json:"correlation_id"`
}

const (
	incomingStream = "chat:incoming"
	outgoingStream = "chat:outgoing"
	consumerGroup  = "core"
)
