// Package knowledge implements the RAG subsystem backing the
// Coordinator's search_knowledge tool (spec.md §4.5). Grounded on the
// teacher's pkg/knowledge/retrieval.go FTS5 search-and-rank pattern,
// simplified from a DOT-graph-with-neighbors retrieval into a flat
// ranked-snippet search scoped to {docs, code, history, logs, all}.
package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/forgeworks/sdo/internal/persistence"
)

// Scope restricts a search to one corpus, matching spec.md §4.5's
// search_knowledge(query, scope) parameter.
type Scope string

const (
	ScopeDocs    Scope = "docs"
	ScopeCode    Scope = "code"
	ScopeHistory Scope = "history"
	ScopeLogs    Scope = "logs"
	ScopeAll     Scope = "all"
)

// Result is one ranked match.
type Result struct {
	Scope   string  `json:"scope"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Store is a SQLite FTS5-backed index over indexed documents, code
// excerpts, conversation history, and log excerpts.
type Store struct {
	db *sql.DB
}

// NewStore wraps the process-wide persistence database. Callers must
// have already run EnsureSchema once (typically during process
// startup, alongside persistence.Initialize).
func NewStore() *Store {
	return &Store{db: persistence.GetDB()}
}

// EnsureSchema creates the FTS5 virtual table backing the store if it
// does not already exist. Safe to call repeatedly.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE VIRTUAL TABLE IF NOT EXISTS knowledge_fts USING fts5(
	scope UNINDEXED,
	title,
	body
)`)
	if err != nil {
		return fmt.Errorf("knowledge: failed to create fts table: %w", err)
	}
	return nil
}

// Index appends one document to scope's corpus.
func (s *Store) Index(ctx context.Context, scope Scope, title, body string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO knowledge_fts (scope, title, body) VALUES (?, ?, ?)`,
		string(scope), title, body,
	)
	if err != nil {
		return fmt.Errorf("knowledge: failed to index document: %w", err)
	}
	return nil
}

// Search ranks documents matching query within scope (or across every
// scope when scope == ScopeAll), returning at most limit results
// ordered by FTS5's bm25 rank (best match first).
func (s *Store) Search(ctx context.Context, query string, scope Scope, limit int) ([]Result, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	ftsQuery := strings.Join(terms, " OR ")

	var rows *sql.Rows
	var err error
	if scope == "" || scope == ScopeAll {
		rows, err = s.db.QueryContext(ctx,
			`SELECT scope, title, snippet(knowledge_fts, 2, '[', ']', '...', 10), bm25(knowledge_fts)
			 FROM knowledge_fts WHERE knowledge_fts MATCH ? ORDER BY bm25(knowledge_fts) LIMIT ?`,
			ftsQuery, limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT scope, title, snippet(knowledge_fts, 2, '[', ']', '...', 10), bm25(knowledge_fts)
			 FROM knowledge_fts WHERE scope = ? AND knowledge_fts MATCH ? ORDER BY bm25(knowledge_fts) LIMIT ?`,
			string(scope), ftsQuery, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("knowledge: search failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Scope, &r.Title, &r.Snippet, &r.Score); err != nil {
			return nil, fmt.Errorf("knowledge: failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
