package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Get decodes the value stored under key into dst. It reports false when
// the key was never written or has been removed.
func (s *Store) Get(scope Scope, key string, dst any) (bool, error) {
	var raw sql.NullString
	err := s.db.QueryRow(`SELECT value FROM kv WHERE scope = ? AND key = ?`, string(scope), key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", scope, key, err)
	}
	if !raw.Valid {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw.String), dst); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", scope, key, err)
	}
	return true, nil
}

// Set replaces every field in values with one revision. Fields are replaced
// wholesale, never merged, so concurrent writers owning disjoint fields do
// not clobber each other.
func (s *Store) Set(scope Scope, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	encoded := make(map[string]sql.NullString, len(values))
	for k, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", scope, k, err)
		}
		encoded[k] = sql.NullString{String: string(data), Valid: true}
	}
	return s.write(scope, encoded)
}

// Remove deletes keys. Removal is recorded as a tombstone so watchers in
// other processes observe it.
func (s *Store) Remove(scope Scope, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tombstones := make(map[string]sql.NullString, len(keys))
	for _, k := range keys {
		tombstones[k] = sql.NullString{}
	}
	return s.write(scope, tombstones)
}

func (s *Store) write(scope Scope, values map[string]sql.NullString) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer tx.Rollback()

	var rev int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(revision), 0) + 1 FROM kv`).Scan(&rev); err != nil {
		return fmt.Errorf("next revision: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	keys := make([]string, 0, len(values))
	for k, v := range values {
		_, err := tx.Exec(
			`INSERT INTO kv (scope, key, value, revision, writer, updated_at) VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(scope, key) DO UPDATE SET
			   value = excluded.value, revision = excluded.revision,
			   writer = excluded.writer, updated_at = excluded.updated_at`,
			string(scope), k, v, rev, s.writer, now,
		)
		if err != nil {
			return fmt.Errorf("write %s/%s: %w", scope, k, err)
		}
		keys = append(keys, k)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}

	sort.Strings(keys)
	s.notify(Change{Scope: scope, Keys: keys, Revision: rev})
	return nil
}
