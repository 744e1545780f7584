package testkit

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/forgeworks/sdo/internal/redisx"
)

// NewRedis starts an in-process miniredis server and returns a
// redisx.Client wired to it, tearing both down on test cleanup. Every
// package below that needs a lock, stream, or kv store (session,
// jobqueue, container, deploy) repeated this exact setup inline before
// it was lifted here.
func NewRedis(t *testing.T) *redisx.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb, err := redisx.New("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	return rdb
}
