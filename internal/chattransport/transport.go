package chattransport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/logx"
	"github.com/forgeworks/sdo/internal/redisx"
)

// Transport is the Redis-streams-backed chat contract: it publishes
// outbound replies (redacting secrets first) and delivers inbound user
// messages to a consumer-group handler, the same consumer-group
// delivery shape internal/jobqueue.Dispatcher uses for its job
// streams, applied here to the two chat streams instead.
type Transport struct {
	rdb     *redisx.Client
	logger  *logx.Logger
	scanner *secretScanner
}

// New builds a Transport over an existing Redis connection.
func New(rdb *redisx.Client) *Transport {
	return &Transport{rdb: rdb, logger: logx.NewLogger("chattransport"), scanner: newSecretScanner()}
}

// EnsureGroup creates the inbound consumer group if it does not exist
// yet. Must be called once before Listen.
func (t *Transport) EnsureGroup(ctx context.Context) error {
	err := t.rdb.Raw().XGroupCreateMkStream(ctx, incomingStream, consumerGroup, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return errs.Wrap(errs.KindTransient, fmt.Errorf("chattransport: failed to create consumer group: %w", err))
	}
	return nil
}

// Publish redacts text for known secret shapes and appends it to the
// outbound stream (spec.md §6 "Outbound message payload"). It
// satisfies internal/coordinator.OutboundSink.
func (t *Transport) Publish(ctx context.Context, userID, chatID int64, text, correlationID string) error {
	msg := OutboundMessage{UserID: userID, ChatID: chatID, Text: t.scanner.redact(text), CorrelationID: correlationID}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("chattransport: failed to marshal outbound message: %w", err)
	}
	err = t.rdb.Raw().XAdd(ctx, &redis.XAddArgs{
		Stream: outgoingStream,
		Values: map[string]any{"payload": string(data)},
	}).Err()
	if err != nil {
		return errs.Wrap(errs.KindTransient, fmt.Errorf("chattransport: failed to publish outbound message: %w", err))
	}
	return nil
}

// InboundHandler processes one delivered InboundMessage. Returning an
// error leaves the entry unacked so it is redelivered after the
// visibility timeout, mirroring jobqueue.Handler's retry contract.
type InboundHandler func(ctx context.Context, msg InboundMessage) error

// Listen blocks, claiming one inbound message at a time via
// consumerName and dispatching to handler, acking on success. It
// returns only when ctx is cancelled.
func (t *Transport) Listen(ctx context.Context, consumerName string, visibilityTimeout time.Duration, handler InboundHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := t.reclaimStale(ctx, consumerName, visibilityTimeout, handler); err != nil {
			t.logger.Warn("chattransport: reclaim pass failed: %v", err)
		}

		res, err := t.rdb.Raw().XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: consumerName,
			Streams:  []string{incomingStream, ">"},
			Count:    1,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			t.logger.Error("chattransport: read failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range res {
			for _, m := range s.Messages {
				t.processMessage(ctx, m, handler)
			}
		}
	}
}

func (t *Transport) processMessage(ctx context.Context, m redis.XMessage, handler InboundHandler) {
	raw, _ := m.Values["payload"].(string)
	var msg InboundMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.logger.Error("chattransport: failed to unmarshal inbound message %s: %v", m.ID, err)
		return
	}

	if err := handler(ctx, msg); err != nil {
		t.logger.Error("chattransport: handler failed for message %s: %v", m.ID, err)
		return
	}

	if err := t.rdb.Raw().XAck(ctx, incomingStream, consumerGroup, m.ID).Err(); err != nil {
		t.logger.Error("chattransport: ack failed for message %s: %v", m.ID, err)
	}
}

func (t *Transport) reclaimStale(ctx context.Context, consumerName string, visibilityTimeout time.Duration, handler InboundHandler) error {
	claimed, _, err := t.rdb.Raw().XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   incomingStream,
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
	for _, m := range claimed {
		t.processMessage(ctx, m, handler)
	}
	return nil
}

// SendInbound is a test/front-end-adapter helper that appends an
// InboundMessage directly to the incoming stream, the publish side a
// real chat-transport front-end would perform.
func (t *Transport) SendInbound(ctx context.Context, msg InboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("chattransport: failed to marshal inbound message: %w", err)
	}
	err = t.rdb.Raw().XAdd(ctx, &redis.XAddArgs{
		Stream: incomingStream,
		Values: map[string]any{"payload": string(data)},
	}).Err()
	if err != nil {
		return errs.Wrap(errs.KindTransient, fmt.Errorf("chattransport: failed to append inbound message: %w", err))
	}
	return nil
}
