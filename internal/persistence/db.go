// Package persistence provides the SQLite-backed Checkpoint Store for
// the Durable Job Dispatcher (spec.md §4.3), ported from
// pkg/persistence/db.go's singleton-by-sync.Once pattern: WAL mode,
// single writer connection, panic-on-unintialized-access GetDB.
package persistence

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // pure-Go sqlite driver, no cgo

	"github.com/forgeworks/sdo/internal/logx"
)

//nolint:gochecknoglobals // intentional singleton, matches teacher's persistence package
var (
	globalDB     *sql.DB
	globalDBOnce sync.Once
	globalDBMu   sync.RWMutex
	dbLogger     *logx.Logger
)

// Initialize opens (and migrates) the checkpoint database at dbPath.
// Safe to call more than once; only the first call takes effect.
func Initialize(dbPath string) error {
	var initErr error

	globalDBOnce.Do(func() {
		dbLogger = logx.NewLogger("persistence")

		db, err := sql.Open("sqlite", fmt.Sprintf(
			"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
			dbPath,
		))
		if err != nil {
			initErr = fmt.Errorf("failed to open checkpoint database: %w", err)
			return
		}

		if err := db.Ping(); err != nil {
			_ = db.Close()
			initErr = fmt.Errorf("failed to ping checkpoint database: %w", err)
			return
		}

		if err := migrate(db); err != nil {
			_ = db.Close()
			initErr = fmt.Errorf("failed to migrate checkpoint schema: %w", err)
			return
		}

		db.SetMaxOpenConns(1) // sqlite supports a single writer
		db.SetMaxIdleConns(1)

		globalDB = db
		dbLogger.Info("checkpoint database initialized: %s", dbPath)
	})

	return initErr
}

// GetDB returns the singleton connection. Panics if Initialize has not
// been called, matching the teacher's access-after-init contract.
func GetDB() *sql.DB {
	globalDBMu.RLock()
	defer globalDBMu.RUnlock()
	if globalDB == nil {
		panic("persistence.Initialize must be called before GetDB")
	}
	return globalDB
}

// IsInitialized reports whether Initialize has completed successfully.
func IsInitialized() bool {
	globalDBMu.RLock()
	defer globalDBMu.RUnlock()
	return globalDB != nil
}

// Close closes the singleton connection. Call during graceful shutdown.
func Close() error {
	globalDBMu.Lock()
	defer globalDBMu.Unlock()
	if globalDB != nil {
		err := globalDB.Close()
		globalDB = nil
		if err != nil {
			return fmt.Errorf("failed to close checkpoint database: %w", err)
		}
	}
	return nil
}

// Reset closes the connection and clears the singleton so tests can
// re-Initialize against a fresh temp file.
func Reset() error {
	globalDBMu.Lock()
	defer globalDBMu.Unlock()
	if globalDB != nil {
		if err := globalDB.Close(); err != nil {
			return fmt.Errorf("failed to close checkpoint database during reset: %w", err)
		}
		globalDB = nil
	}
	globalDBOnce = sync.Once{}
	dbLogger = nil
	return nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS checkpoints (
	thread_id    TEXT NOT NULL,
	node         TEXT NOT NULL,
	state_json   TEXT NOT NULL,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (thread_id)
);

CREATE TABLE IF NOT EXISTS job_checkpoints (
	job_id       TEXT NOT NULL PRIMARY KEY,
	stream       TEXT NOT NULL,
	payload_json TEXT NOT NULL,
	attempts     INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
	if err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}
