// Package sqlite implements store.Store on top of an embedded SQLite
// database (modernc.org/sqlite, a pure-Go driver requiring no cgo). Writes
// are serialized through a single *sql.DB with MaxOpenConns(1): the engine
// is a single daemon process with one writer, so there is no need for a
// connection pool or an external database server.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sentrywatch/internal/domain/store"
	"sentrywatch/internal/observability/metrics"
	"sentrywatch/internal/resilience/circuitbreaker"
)

var _ store.Store = (*Store)(nil)

// Store is the SQLite-backed implementation of store.Store. Reads and
// writes go through cb, which trips after repeated failures against the
// database file (disk full, corruption, a lock held past busy_timeout)
// instead of letting every caller pile up on a database that is already
// failing; db itself is still used directly for transactions and Close,
// which the circuit breaker does not wrap.
type Store struct {
	db *sql.DB
	cb *circuitbreaker.DBCircuitBreaker
}

// Config controls how the database file is opened.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// DefaultConfig returns sensible defaults for path.
func DefaultConfig(path string) Config {
	return Config{Path: path, BusyTimeout: 10 * time.Second}
}

// Open opens (creating if absent) the SQLite database at cfg.Path, applies
// production-safe pragmas, and runs forward migrations. Pass ":memory:" for
// an ephemeral in-process database (tests only).
func Open(cfg Config) (*Store, error) {
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// A single connection keeps all writes serialized and, for :memory:,
	// keeps every caller on the same in-memory database (each new
	// connection to ":memory:" would otherwise see an empty one).
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db, cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &Store{db: db, cb: circuitbreaker.NewDBCircuitBreaker(db)}, nil
}

func applyPragmas(db *sql.DB, busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// recordOp returns a func to defer at the top of a Store method; calling it
// observes the method's wall-clock duration under StoreOperationDuration,
// the same defer-timed pattern orchestrator.CheckTarget uses for checks.
func recordOp(op string) func() {
	start := time.Now()
	return func() { metrics.RecordStoreOperation(op, time.Since(start)) }
}
