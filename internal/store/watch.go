package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// Change describes one committed write.
type Change struct {
	Scope    Scope
	Keys     []string
	Revision int64
	// Foreign is set when the write came from another Store instance,
	// typically another process sharing the same database file.
	Foreign bool
}

// Has reports whether the change touched any of keys.
func (c Change) Has(keys ...string) bool {
	for _, k := range keys {
		if slices.Contains(c.Keys, k) {
			return true
		}
	}
	return false
}

// Subscribe registers fn for every committed write and returns a function
// that removes the subscription. fn runs on the writer's goroutine and must
// not block.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Watch polls for writes made by other Store instances and forwards them
// to subscribers as foreign changes. It returns when ctx is cancelled.
func (s *Store) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.pollForeign(); err != nil {
				slog.Warn("store: watch poll failed", "error", err)
			}
		}
	}
}

// pollForeign emits one Change per (revision, scope) written by others
// since the last poll.
func (s *Store) pollForeign() error {
	s.cursorMu.Lock()
	defer s.cursorMu.Unlock()

	rows, err := s.db.Query(
		`SELECT scope, key, revision, writer FROM kv WHERE revision > ? ORDER BY revision, scope, key`,
		s.cursor,
	)
	if err != nil {
		return fmt.Errorf("query changes: %w", err)
	}

	var changes []Change
	for rows.Next() {
		var scope, key, writer string
		var rev int64
		if err := rows.Scan(&scope, &key, &rev, &writer); err != nil {
			rows.Close()
			return err
		}
		if rev > s.cursor {
			s.cursor = rev
		}
		if writer == s.writer {
			continue
		}
		n := len(changes)
		if n > 0 && changes[n-1].Revision == rev && changes[n-1].Scope == Scope(scope) {
			changes[n-1].Keys = append(changes[n-1].Keys, key)
			continue
		}
		changes = append(changes, Change{Scope: Scope(scope), Keys: []string{key}, Revision: rev, Foreign: true})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, c := range changes {
		s.notify(c)
	}
	return nil
}
