package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// JobRecord tracks a durable job's delivery bookkeeping, persisted
// alongside (but independent of) the graph checkpoint so the Job
// Dispatcher can tell "delivered but not yet acked" apart from
// "never delivered" across a process restart (spec.md §4.3).
type JobRecord struct {
	JobID      string
	Stream     string
	Payload    string
	Attempts   int
}

// JobStore persists job delivery bookkeeping.
type JobStore struct {
	db *sql.DB
}

// NewJobStore wraps the singleton connection.
func NewJobStore() *JobStore {
	return &JobStore{db: GetDB()}
}

// Upsert records a job as claimed/delivered, incrementing its attempt count.
func (s *JobStore) Upsert(ctx context.Context, rec JobRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO job_checkpoints (job_id, stream, payload_json, attempts, updated_at)
VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(job_id) DO UPDATE SET
	payload_json = excluded.payload_json,
	attempts = job_checkpoints.attempts + 1,
	updated_at = CURRENT_TIMESTAMP
`, rec.JobID, rec.Stream, rec.Payload, rec.Attempts)
	if err != nil {
		return fmt.Errorf("failed to upsert job record %s: %w", rec.JobID, err)
	}
	return nil
}

// Get returns the bookkeeping record for jobID.
func (s *JobStore) Get(ctx context.Context, jobID string) (JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT job_id, stream, payload_json, attempts FROM job_checkpoints WHERE job_id = ?`, jobID)
	var rec JobRecord
	if err := row.Scan(&rec.JobID, &rec.Stream, &rec.Payload, &rec.Attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return JobRecord{}, ErrNotFound
		}
		return JobRecord{}, fmt.Errorf("failed to load job record %s: %w", jobID, err)
	}
	return rec, nil
}

// Delete removes a job's bookkeeping record once it has been acked.
func (s *JobStore) Delete(ctx context.Context, jobID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM job_checkpoints WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("failed to delete job record %s: %w", jobID, err)
	}
	return nil
}
