// Package eventlog writes an append-only, daily-rotated JSONL audit
// trail of graph-node transitions, ported from
// pkg/eventlog/writer.go with the payload type changed from the
// teacher's AgentMsg to this system's own Event record.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event is one append-only audit-log entry.
type Event struct {
	Timestamp     time.Time      `json:"timestamp"`
	ThreadID      string         `json:"thread_id"`
	CorrelationID string         `json:"correlation_id"`
	Kind          string         `json:"kind"` // e.g. "node_enter", "node_exit", "node_failure_routed"
	Node          string         `json:"node,omitempty"`
	Tool          string         `json:"tool,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
}

// Writer appends Events to a daily-rotated JSONL file.
type Writer struct {
	mu          sync.Mutex
	logDir      string
	currentFile *os.File
	currentDate string
}

// NewWriter creates (or opens) the log directory and the file for today.
func NewWriter(logDir string) (*Writer, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: failed to create log directory: %w", err)
	}
	w := &Writer{logDir: logDir}
	if err := w.rotateIfNeeded(); err != nil {
		return nil, fmt.Errorf("eventlog: failed to open initial log file: %w", err)
	}
	return w, nil
}

// Write appends ev to the current log file, rotating at day boundaries.
func (w *Writer) Write(ev Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.rotateIfNeeded(); err != nil {
		return fmt.Errorf("eventlog: rotation failed: %w", err)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("eventlog: failed to marshal event: %w", err)
	}
	if _, err := w.currentFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("eventlog: failed to write event: %w", err)
	}
	return w.currentFile.Sync()
}

// Close closes the current log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.currentFile != nil {
		return w.currentFile.Close()
	}
	return nil
}

func (w *Writer) rotateIfNeeded() error {
	newDate := time.Now().UTC().Format("2006-01-02")
	if w.currentFile != nil && w.currentDate == newDate {
		return nil
	}
	if w.currentFile != nil {
		if err := w.currentFile.Close(); err != nil {
			return fmt.Errorf("failed to close previous log file: %w", err)
		}
	}
	path := filepath.Join(w.logDir, fmt.Sprintf("events-%s.jsonl", newDate))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	w.currentFile = f
	w.currentDate = newDate
	return nil
}
