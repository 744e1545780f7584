package jobqueue

import (
	"context"

	"github.com/forgeworks/sdo/internal/persistence"
	"github.com/forgeworks/sdo/internal/proto"
)

// ReadCheckpoint implements spec.md §4.3's read_checkpoint(thread_id)
// polling operation: thread_id is set to job_id for job-backed graph
// executions, so polling tools can look up a job's state by job id.
func ReadCheckpoint(ctx context.Context, store *persistence.CheckpointStore, jobID string) (node string, state *proto.GraphState, found bool, err error) {
	node, state, loadErr := store.Load(ctx, jobID)
	if loadErr == persistence.ErrNotFound {
		return "", nil, false, nil
	}
	if loadErr != nil {
		return "", nil, false, loadErr
	}
	return node, state, true, nil
}
