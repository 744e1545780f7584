package chattransport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/testkit"
)

var errDeliberate = errors.New("deliberate handler failure")

func TestPublishRedactsSecretsBeforeAppending(t *testing.T) {
	rdb := testkit.NewRedis(t)
	transport := New(rdb)
	ctx := context.Background()

	err := transport.Publish(ctx, 1, 2, "here is a token Bearer abcdefghijklmnopqrstuvwxyz1234567890", "corr-1")
	require.NoError(t, err)

	res, err := rdb.Raw().XRange(ctx, outgoingStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Contains(t, res[0].Values["payload"].(string), redactedPlaceholder)
	require.NotContains(t, res[0].Values["payload"].(string), "abcdefghijklmnopqrstuvwxyz1234567890")
}

func TestListenDeliversAndAcksInboundMessages(t *testing.T) {
	rdb := testkit.NewRedis(t)
	transport := New(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, transport.EnsureGroup(ctx))
	require.NoError(t, transport.SendInbound(ctx, InboundMessage{UserID: 1, ChatID: 2, MessageID: "m1", Text: "hello", CorrelationID: "corr-1"}))

	var mu sync.Mutex
	var received []InboundMessage
	done := make(chan struct{})

	go func() {
		_ = transport.Listen(ctx, "consumer-1", 30*time.Second, func(_ context.Context, msg InboundMessage) error {
			mu.Lock()
			received = append(received, msg)
			mu.Unlock()
			close(done)
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for inbound message delivery")
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	require.Equal(t, "hello", received[0].Text)

	pending, err := rdb.Raw().XPending(context.Background(), incomingStream, consumerGroup).Result()
	require.NoError(t, err)
	require.Equal(t, int64(0), pending.Count, "delivered message must be acked")
}

func TestListenLeavesMessageUnackedWhenHandlerFails(t *testing.T) {
	rdb := testkit.NewRedis(t)
	transport := New(rdb)
	ctx := context.Background()

	require.NoError(t, transport.EnsureGroup(ctx))
	require.NoError(t, transport.SendInbound(ctx, InboundMessage{UserID: 1, ChatID: 2, MessageID: "m1", Text: "hello", CorrelationID: "corr-1"}))

	runCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_ = transport.Listen(runCtx, "consumer-crashed", 50*time.Millisecond, func(_ context.Context, _ InboundMessage) error {
		return errDeliberate
	})

	pending, err := rdb.Raw().XPending(context.Background(), incomingStream, consumerGroup).Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), pending.Count, "handler error must leave the message unacked")
}
