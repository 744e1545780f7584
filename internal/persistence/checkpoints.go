package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/forgeworks/sdo/internal/proto"
)

// ErrNotFound is returned when a checkpoint does not exist.
var ErrNotFound = errors.New("persistence: checkpoint not found")

// CheckpointStore persists GraphState snapshots keyed by thread id, so
// the Orchestration Graph Runtime (C4) can resume a thread after a
// process restart or a job re-delivery (spec.md §4.3, §4.4).
type CheckpointStore struct {
	db *sql.DB
}

// NewCheckpointStore wraps the singleton connection returned by GetDB.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{db: GetDB()}
}

// Save stores the current node name and a snapshot of state for threadID.
func (s *CheckpointStore) Save(ctx context.Context, threadID, node string, state *proto.GraphState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal graph state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO checkpoints (thread_id, node, state_json, created_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(thread_id) DO UPDATE SET node = excluded.node, state_json = excluded.state_json, created_at = CURRENT_TIMESTAMP
`, threadID, node, string(data))
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for thread %s: %w", threadID, err)
	}
	return nil
}

// Load returns the most recently saved node and state for threadID.
func (s *CheckpointStore) Load(ctx context.Context, threadID string) (node string, state *proto.GraphState, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT node, state_json FROM checkpoints WHERE thread_id = ?`, threadID)
	var stateJSON string
	if err := row.Scan(&node, &stateJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrNotFound
		}
		return "", nil, fmt.Errorf("failed to load checkpoint for thread %s: %w", threadID, err)
	}
	state = &proto.GraphState{}
	if err := json.Unmarshal([]byte(stateJSON), state); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal checkpoint state for thread %s: %w", threadID, err)
	}
	return node, state, nil
}

// Delete removes a single thread's checkpoint outright, used by the
// operator CLI's "replay" command to force a thread's next delivery to
// start the graph over from its entry node.
func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint for thread %s: %w", threadID, err)
	}
	return nil
}

// DeleteOlderThan removes checkpoints last written before the retention
// cutoff, implementing §4.3's checkpoint retention policy.
func (s *CheckpointStore) DeleteOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune checkpoints: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned checkpoints: %w", err)
	}
	return n, nil
}
