package eventlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteAppendsJSONLine(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Write(Event{
		Timestamp:     time.Now().UTC(),
		ThreadID:      "thread-1",
		CorrelationID: "corr-1",
		Kind:          "node_enter",
		Node:          "coordinator",
	}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(data), "thread-1")
	require.Contains(t, string(data), "node_enter")
}
