// Package redisx wraps github.com/redis/go-redis/v9 with the narrow set
// of primitives the orchestrator needs: atomic set-if-absent locks with
// TTL (Session Coordinator, §4.2), consumer-group streams (Job
// Dispatcher, §4.3), and plain key/value storage (agent session context
// in internal/container). Keeping this as one small wrapper, rather than scattering raw
// go-redis calls through every component, mirrors the teacher's pattern
// of a single persistence entry point (pkg/persistence) fronting the
// underlying storage driver.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a thin wrapper around *redis.Client.
type Client struct {
	rdb *redis.Client
}

// New connects to the Redis instance at url (e.g. "redis://host:6379/0").
func New(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	return &Client{rdb: rdb}, nil
}

// Raw exposes the underlying client for operations this wrapper does not cover.
func (c *Client) Raw() *redis.Client { return c.rdb }

// Close closes the underlying connection pool.
func (c *Client) Close() error { return c.rdb.Close() }

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// AcquireLock performs an atomic SET key value NX PX ttl, returning
// whether the lock was newly acquired. Used by the Session Coordinator
// for §4.2 "atomically creates a lock record ... iff none exists".
func (c *Client) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX failed for %s: %w", key, err)
	}
	return ok, nil
}

// RefreshLockTTL extends the TTL of an existing key without changing its value.
func (c *Client) RefreshLockTTL(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := c.rdb.Expire(ctx, key, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis EXPIRE failed for %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("redis key %s does not exist, cannot refresh TTL", key)
	}
	return nil
}

// Get returns a string value, or "" with ok=false if the key is absent.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis GET failed for %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores a string value with the given TTL (0 = no expiry).
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed for %s: %w", key, err)
	}
	return nil
}

// Delete removes a key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis DEL failed for %s: %w", key, err)
	}
	return nil
}

// Incr atomically increments a counter and returns the new value — used
// by the Session Coordinator for the per-user thread-id sequence
// (spec.md §8 "monotonic thread ids").
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	v, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis INCR failed for %s: %w", key, err)
	}
	return v, nil
}
