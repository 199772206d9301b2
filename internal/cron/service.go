package cron

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"
)

// Service runs named repeating alarms on a robfig/cron scheduler.
type Service struct {
	scheduler *robfigcron.Cron
	entries   map[string]robfigcron.EntryID
	mu        sync.Mutex
}

func NewService() *Service {
	return &Service{
		scheduler: robfigcron.New(),
		entries:   make(map[string]robfigcron.EntryID),
	}
}

// Start begins the cron scheduler.
func (s *Service) Start() {
	s.scheduler.Start()
}

// Stop stops the cron scheduler and waits for running callbacks.
func (s *Service) Stop() {
	<-s.scheduler.Stop().Done()
}

// Create registers fn to run every interval under name. An existing alarm
// with the same name is replaced.
func (s *Service) Create(name string, every time.Duration, fn func()) error {
	if every < time.Second {
		return fmt.Errorf("alarm %q: interval %v below one second", name, every)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.scheduler.Remove(id)
		delete(s.entries, name)
	}

	entryID, err := s.scheduler.AddFunc(fmt.Sprintf("@every %s", every), func() {
		slog.Debug("cron: alarm fired", "alarm", name)
		fn()
	})
	if err != nil {
		return fmt.Errorf("failed to register alarm %q: %w", name, err)
	}

	s.entries[name] = entryID
	return nil
}

// Clear removes the alarm called name and reports whether it existed.
func (s *Service) Clear(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return false
	}
	s.scheduler.Remove(id)
	delete(s.entries, name)
	return true
}

// Next returns the next fire time of name, or the zero time if unknown or
// the scheduler is not running.
func (s *Service) Next(name string) time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.scheduler.Entry(id).Next
}
