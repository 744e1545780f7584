package coordinator

import "context"

// OutboundSink is the minimal surface the respond_to_user tool needs
// from the chat transport (spec.md §6 "Outbound message payload").
// internal/chattransport.Transport satisfies this.
type OutboundSink interface {
	Publish(ctx context.Context, userID, chatID int64, text, correlationID string) error
}

// KnowledgeSearcher is the minimal surface the search_knowledge tool
// needs from the RAG subsystem. internal/knowledge.Store satisfies
// this via an adapter in cmd/sdo's wiring.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, scope string, limit int) ([]KnowledgeResult, error)
}

// KnowledgeResult is one ranked search_knowledge hit.
type KnowledgeResult struct {
	Scope   string  `json:"scope"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// RunContext carries the per-invocation dependencies and identity a
// tool needs to execute, threaded through from the graph node that owns
// the current turn. It deliberately excludes *proto.GraphState: tools
// report results as a map and the graph node applies them via
// proto.Update, keeping state mutation centralized in one place
// (spec.md §4.4 "nodes ... return partial updates").
type RunContext struct {
	ThreadID      string
	UserID        int64
	ChatID        int64
	CorrelationID string

	Registry  *Registry
	Outbound  OutboundSink
	Knowledge KnowledgeSearcher
}
