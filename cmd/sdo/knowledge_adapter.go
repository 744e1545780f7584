package main

import (
	"context"

	"github.com/forgeworks/sdo/internal/coordinator"
	"github.com/forgeworks/sdo/internal/knowledge"
)

// knowledgeAdapter adapts internal/knowledge.Store's typed Scope
// parameter to internal/coordinator.KnowledgeSearcher's plain-string
// scope, the only shape mismatch between the two packages (their
// Result/KnowledgeResult field sets already line up exactly).
type knowledgeAdapter struct {
	store *knowledge.Store
}

func (a *knowledgeAdapter) Search(ctx context.Context, query, scope string, limit int) ([]coordinator.KnowledgeResult, error) {
	results, err := a.store.Search(ctx, query, knowledge.Scope(scope), limit)
	if err != nil {
		return nil, err
	}
	out := make([]coordinator.KnowledgeResult, len(results))
	for i, r := range results {
		out[i] = coordinator.KnowledgeResult{Scope: r.Scope, Title: r.Title, Snippet: r.Snippet, Score: r.Score}
	}
	return out, nil
}
