// Package store is the persistent key/value document shared by every
// execution context (page session, coordinator, CLI). Values are JSON
// documents addressed by scope and key; every write bumps a global
// revision so other processes can observe it through Watch.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const currentVersion = 1

// Scope separates values synchronised across devices from values that
// only describe this machine's page reload cycle.
type Scope string

const (
	ScopeSync  Scope = "sync"
	ScopeLocal Scope = "local"
)

type Store struct {
	db     *sql.DB
	writer string

	mu      sync.RWMutex
	subs    map[int]func(Change)
	nextSub int

	cursorMu sync.Mutex
	cursor   int64
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	// write reads MAX(revision) before upserting; the lock is taken at BEGIN.
	dsn := dbPath + "?_txlock=immediate&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{
		db:     db,
		writer: uuid.NewString(),
		subs:   make(map[int]func(Change)),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	rev, err := s.Revision()
	if err != nil {
		db.Close()
		return nil, err
	}
	s.cursor = rev
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Writer returns the id stamped on every row this instance writes.
func (s *Store) Writer() string {
	return s.writer
}

// Revision returns the highest revision written so far by any writer.
func (s *Store) Revision() (int64, error) {
	var rev int64
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(revision), 0) FROM kv`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS kv (
		scope       TEXT NOT NULL,
		key         TEXT NOT NULL,
		value       TEXT,
		revision    INTEGER NOT NULL,
		writer      TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (scope, key)
	);

	CREATE INDEX IF NOT EXISTS idx_kv_revision ON kv(revision);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/deskclock/deskclock.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "deskclock", "deskclock.db"), nil
}
