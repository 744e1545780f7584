// Package jobqueue implements the Durable Job Dispatcher & Checkpoint
// Store (spec.md §4.3): Redis-Streams consumer groups for at-least-once
// delivery, generalized from the teacher's in-process
// pkg/dispatch/dispatcher.go channel/worker-pool pattern onto a durable
// external queue. internal/persistence supplies the checkpoint side.
package jobqueue

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/logx"
	"github.com/forgeworks/sdo/internal/redisx"
)

// Kind identifies a queue (spec.md §4.3: "deploy:queue", "engineering:queue").
type Kind string

const (
	KindDeploy      Kind = "deploy"
	KindEngineering Kind = "engineering"
)

func streamName(kind Kind) string { return fmt.Sprintf("%s:queue", kind) }

// consumerGroup is the single named group every worker of a kind joins,
// so that Redis delivers each stream entry to exactly one consumer at a
// time (spec.md §4.3 "Concurrency").
const consumerGroup = "workers"

// Entry is one payload appended to a job-kind stream.
type Entry struct {
	JobID         string         `json:"job_id"`
	ProjectID     string         `json:"project_id"`
	UserID        string         `json:"user_id"`
	CorrelationID string         `json:"correlation_id"`
	QueuedAt      time.Time      `json:"queued_at"`
	Fields        map[string]any `json:"fields"`
}

// Dispatcher enqueues and dispatches durable jobs.
type Dispatcher struct {
	rdb    *redisx.Client
	logger *logx.Logger
}

// New builds a Dispatcher over an existing Redis connection.
func New(rdb *redisx.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb, logger: logx.NewLogger("jobqueue")}
}

// EnsureGroup creates the consumer group for kind if it does not exist
// yet. Must be called once before RunWorker for that kind.
func (d *Dispatcher) EnsureGroup(ctx context.Context, kind Kind) error {
	stream := streamName(kind)
	err := d.rdb.Raw().XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return errs.Wrap(errs.KindTransient, fmt.Errorf("jobqueue: failed to create consumer group for %s: %w", stream, err))
	}
	return nil
}

// Enqueue appends an entry to kind's stream, generating a job id in the
// form {kind}_{project_slug}_{random-hex-8} per spec.md §4.3.
func (d *Dispatcher) Enqueue(ctx context.Context, kind Kind, projectSlug, userID, correlationID string, fields map[string]any) (string, error) {
	jobID, err := newJobID(kind, projectSlug)
	if err != nil {
		return "", err
	}
	entry := Entry{
		JobID:         jobID,
		ProjectID:     projectSlug,
		UserID:        userID,
		CorrelationID: correlationID,
		QueuedAt:      time.Now().UTC(),
		Fields:        fields,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("jobqueue: failed to marshal entry: %w", err)
	}
	err = d.rdb.Raw().XAdd(ctx, &redis.XAddArgs{
		Stream: streamName(kind),
		Values: map[string]any{"payload": string(data)},
	}).Err()
	if err != nil {
		return "", errs.Wrap(errs.KindTransient, fmt.Errorf("jobqueue: failed to enqueue entry: %w", err))
	}
	return jobID, nil
}

// Handler processes one dequeued Entry. Returning an error leaves the
// entry unacked so the visibility-timeout mechanism redelivers it; a
// handler that wants a *terminal* failure (no further retries) must
// record that outcome in the checkpoint itself before returning nil.
type Handler func(ctx context.Context, entry Entry) error

// RunWorker blocks, claiming one entry at a time from kind's stream via
// consumerName, dispatching to handler, and acking on success. It
// returns only when ctx is cancelled.
func (d *Dispatcher) RunWorker(ctx context.Context, kind Kind, consumerName string, visibilityTimeout time.Duration, handler Handler) error {
	stream := streamName(kind)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := d.reclaimStale(ctx, stream, consumerName, visibilityTimeout, handler); err != nil {
			d.logger.Warn("jobqueue: reclaim pass failed for %s: %v", stream, err)
		}

		res, err := d.rdb.Raw().XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: consumerName,
			Streams:  []string{stream, ">"},
			Count:    1,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			d.logger.Error("jobqueue: read failed for %s: %v", stream, err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range res {
			for _, msg := range s.Messages {
				d.processMessage(ctx, stream, msg, handler)
			}
		}
	}
}

func (d *Dispatcher) processMessage(ctx context.Context, stream string, msg redis.XMessage, handler Handler) {
	raw, _ := msg.Values["payload"].(string)
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		d.logger.Error("jobqueue: failed to unmarshal entry %s: %v", msg.ID, err)
		return
	}

	if err := handler(ctx, entry); err != nil {
		d.logger.Error("jobqueue: handler failed for job %s: %v", entry.JobID, err)
		return // leave unacked; redelivered after visibility timeout
	}

	if err := d.rdb.Raw().XAck(ctx, stream, consumerGroup, msg.ID).Err(); err != nil {
		d.logger.Error("jobqueue: ack failed for job %s: %v", entry.JobID, err)
	}
}

// reclaimStale claims pending entries idle longer than visibilityTimeout
// so a crashed consumer's work is redelivered (spec.md §4.3, §5).
func (d *Dispatcher) reclaimStale(ctx context.Context, stream, consumerName string, visibilityTimeout time.Duration, handler Handler) error {
	claimed, _, err := d.rdb.Raw().XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    consumerGroup,
		Consumer: consumerName,
		MinIdle:  visibilityTimeout,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("xautoclaim failed: %w", err)
	}
	for _, msg := range claimed {
		d.processMessage(ctx, stream, msg, handler)
	}
	return nil
}

func newJobID(kind Kind, projectSlug string) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("jobqueue: failed to generate job id suffix: %w", err)
	}
	return fmt.Sprintf("%s_%s_%s", kind, projectSlug, hex.EncodeToString(buf)), nil
}
