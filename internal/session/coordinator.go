// Package session implements the Session Coordinator (spec.md §4.2):
// per-user serialization of chat traffic via an atomic Redis lock, plus
// the per-user monotonic thread-id sequence. Grounded on the
// StateStore-with-invariants shape of pkg/state/store.go, rewired onto
// internal/redisx for the atomic set-if-absent-with-TTL semantics the
// original in-process store does not need.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/redisx"
)

// LockState is the session lock's processing phase.
type LockState string

const (
	StateProcessing LockState = "processing"
	StateAwaiting   LockState = "awaiting"
)

type lockRecord struct {
	ThreadID string    `json:"thread_id"`
	State    LockState `json:"state"`
	LockedAt time.Time `json:"locked_at"`
}

// Coordinator serializes per-user traffic (spec.md §4.2).
type Coordinator struct {
	rdb     *redisx.Client
	lockTTL time.Duration
}

// New builds a Coordinator with the configured lock TTL (default 30min).
func New(rdb *redisx.Client, lockTTL time.Duration) *Coordinator {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &Coordinator{rdb: rdb, lockTTL: lockTTL}
}

func lockKey(user string) string { return fmt.Sprintf("session:lock:%s", user) }
func seqKey(user string) string  { return fmt.Sprintf("thread:sequence:%s", user) }

// Acquire atomically creates a lock record for user+thread iff none
// exists, returning whether it succeeded.
func (c *Coordinator) Acquire(ctx context.Context, user, thread string) (bool, error) {
	rec := lockRecord{ThreadID: thread, State: StateProcessing, LockedAt: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("session: failed to marshal lock record: %w", err)
	}
	ok, err := c.rdb.AcquireLock(ctx, lockKey(user), string(data), c.lockTTL)
	if err != nil {
		return false, errs.Wrap(errs.KindTransient, err)
	}
	return ok, nil
}

// UpdateState transitions the lock for user to state, refreshing its TTL.
func (c *Coordinator) UpdateState(ctx context.Context, user string, state LockState) error {
	raw, ok, err := c.rdb.Get(ctx, lockKey(user))
	if err != nil {
		return errs.Wrap(errs.KindTransient, err)
	}
	if !ok {
		return errs.New(errs.KindInvariant, "session: no lock held for user %s", user)
	}
	var rec lockRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return fmt.Errorf("session: failed to unmarshal lock record: %w", err)
	}
	rec.State = state
	rec.LockedAt = time.Now().UTC()
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: failed to marshal lock record: %w", err)
	}
	if err := c.rdb.Set(ctx, lockKey(user), string(data), c.lockTTL); err != nil {
		return errs.Wrap(errs.KindTransient, err)
	}
	return nil
}

// Release removes the lock for user. MUST be called on any graph
// execution error to prevent stuck sessions (spec.md §4.2, §7).
func (c *Coordinator) Release(ctx context.Context, user string) error {
	if err := c.rdb.Delete(ctx, lockKey(user)); err != nil {
		return errs.Wrap(errs.KindTransient, err)
	}
	return nil
}

// Outcome is the result of ContinueOrStart.
type Outcome int

const (
	// OutcomeNew indicates a fresh thread was allocated and locked.
	OutcomeNew Outcome = iota
	// OutcomeContinuation indicates an existing awaiting thread resumed.
	OutcomeContinuation
	// OutcomeBusy indicates the user already has a processing thread; the
	// caller MUST reject the incoming message and NOT enqueue it.
	OutcomeBusy
)

// ContinueOrStart implements spec.md §4.2's continue_or_start operation.
func (c *Coordinator) ContinueOrStart(ctx context.Context, user string) (threadID string, outcome Outcome, err error) {
	raw, ok, err := c.rdb.Get(ctx, lockKey(user))
	if err != nil {
		return "", 0, errs.Wrap(errs.KindTransient, err)
	}

	if !ok {
		newID, err := c.nextThreadID(ctx, user)
		if err != nil {
			return "", 0, err
		}
		acquired, err := c.Acquire(ctx, user, newID)
		if err != nil {
			return "", 0, err
		}
		if !acquired {
			// Lost a race with a concurrent acquirer; treat as busy rather
			// than silently overwriting their lock.
			return "", OutcomeBusy, nil
		}
		return newID, OutcomeNew, nil
	}

	var rec lockRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return "", 0, fmt.Errorf("session: failed to unmarshal lock record: %w", err)
	}

	switch rec.State {
	case StateAwaiting:
		if err := c.UpdateState(ctx, user, StateProcessing); err != nil {
			return "", 0, err
		}
		return rec.ThreadID, OutcomeContinuation, nil
	case StateProcessing:
		return "", OutcomeBusy, nil
	default:
		return "", 0, errs.New(errs.KindInvariant, "session: unknown lock state %q for user %s", rec.State, user)
	}
}

func (c *Coordinator) nextThreadID(ctx context.Context, user string) (string, error) {
	seq, err := c.rdb.Incr(ctx, seqKey(user))
	if err != nil {
		return "", errs.Wrap(errs.KindTransient, err)
	}
	return fmt.Sprintf("%s-%d", user, seq), nil
}
