package schedule

import (
	"fmt"
	"strings"

	"github.com/coopco/deskclock/internal/store"
)

// Load reads the sync-scope schedule document. Missing fields take their
// zero value; a missing isActive reads as inactive.
func Load(s *store.Store) (Schedule, error) {
	var sched Schedule
	fields := []struct {
		key string
		dst any
	}{
		{store.KeyScheduledTasks, &sched.Tasks},
		{store.KeyIsActive, &sched.Active},
		{store.KeyClockInTime, &sched.ClockIn},
		{store.KeyClockOutTime, &sched.ClockOut},
		{store.KeyTargetDates, &sched.Dates},
		{store.KeyIsRandomized, &sched.Randomized},
	}
	for _, f := range fields {
		if _, err := s.Get(store.ScopeSync, f.key, f.dst); err != nil {
			return Schedule{}, fmt.Errorf("load schedule: %w", err)
		}
	}
	return sched, nil
}

// Activate generates tasks for req and stores them as the active schedule
// in one write. Nothing is written when generation fails, so an empty
// schedule never becomes active.
func Activate(s *store.Store, g Generator, req Request) ([]Task, error) {
	tasks, err := g.Generate(req)
	if err != nil {
		return nil, err
	}
	dates := req.Dates
	if dates == nil {
		dates = []string{}
	}
	err = s.Set(store.ScopeSync, map[string]any{
		store.KeyClockInTime:    req.ClockIn,
		store.KeyClockOutTime:   req.ClockOut,
		store.KeyTargetDates:    dates,
		store.KeyIsRandomized:   req.Randomized,
		store.KeyScheduledTasks: tasks,
		store.KeyIsActive:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("store schedule: %w", err)
	}
	return tasks, nil
}

// Clear empties the task list and deactivates the schedule.
func Clear(s *store.Store) error {
	return s.Set(store.ScopeSync, map[string]any{
		store.KeyIsActive:       false,
		store.KeyScheduledTasks: []Task{},
	})
}

// Deactivate forces the active flag off and leaves the task list alone.
func Deactivate(s *store.Store) error {
	return s.Set(store.ScopeSync, map[string]any{store.KeyIsActive: false})
}

// LastProcessed returns the progress marker, or 0 if none was recorded.
func LastProcessed(s *store.Store) (int64, error) {
	var ts int64
	if _, err := s.Get(store.ScopeLocal, store.KeyLastProcessed, &ts); err != nil {
		return 0, err
	}
	return ts, nil
}

// MarkProcessed records ts as the progress marker.
func MarkProcessed(s *store.Store, ts int64) error {
	return s.Set(store.ScopeLocal, map[string]any{store.KeyLastProcessed: ts})
}

// MarkClicked records the progress marker and the verification intent in
// one write, before the page reloads.
func MarkClicked(s *store.Store, v Verification) error {
	return s.Set(store.ScopeLocal, map[string]any{
		store.KeyLastProcessed:       v.Timestamp,
		store.KeyVerificationPending: v,
	})
}

// PendingVerification returns the stored intent, or nil if none exists.
func PendingVerification(s *store.Store) (*Verification, error) {
	var v Verification
	ok, err := s.Get(store.ScopeLocal, store.KeyVerificationPending, &v)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

func SaveVerification(s *store.Store, v Verification) error {
	return s.Set(store.ScopeLocal, map[string]any{store.KeyVerificationPending: v})
}

func ClearVerification(s *store.Store) error {
	return s.Remove(store.ScopeLocal, store.KeyVerificationPending)
}

// Topic returns the notification topic saved by the user, trimmed.
func Topic(s *store.Store) (string, error) {
	var topic string
	if _, err := s.Get(store.ScopeSync, store.KeyNtfyTopic, &topic); err != nil {
		return "", err
	}
	return strings.TrimSpace(topic), nil
}

func SetTopic(s *store.Store, topic string) error {
	return s.Set(store.ScopeSync, map[string]any{store.KeyNtfyTopic: topic})
}
