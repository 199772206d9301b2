// Package schedule holds the task model, the generator that turns dates and
// clock times into an ordered task list, and the store bindings for the
// schedule, progress marker and verification intent.
package schedule

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
)

const (
	// GraceWindow is how far in the past a task may be and still run.
	GraceWindow = 60 * time.Second
	// MaxJitterMinutes bounds the randomisation applied to each task.
	MaxJitterMinutes = 5
)

var (
	ErrNoTimes       = errors.New("please set at least one time")
	ErrNoDates       = errors.New("select at least one date")
	ErrEmptySchedule = errors.New("all calculated times are in the past")
)

// Request is the input of one generation, either typed by the user or
// pushed by a remote command.
type Request struct {
	Dates      []string
	ClockIn    string
	ClockOut   string
	Randomized bool
}

// Generator builds task lists. The zero value uses the wall clock, the
// local time zone and math/rand.
type Generator struct {
	Now      func() time.Time
	Location *time.Location
	// Jitter returns a minute offset in [-MaxJitterMinutes, MaxJitterMinutes].
	Jitter func() int
}

func (g Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g Generator) location() *time.Location {
	if g.Location != nil {
		return g.Location
	}
	return time.Local
}

func (g Generator) jitter() int {
	if g.Jitter != nil {
		return g.Jitter()
	}
	return rand.Intn(2*MaxJitterMinutes+1) - MaxJitterMinutes
}

// Generate returns the tasks for req sorted by timestamp. Candidates more
// than GraceWindow in the past are dropped; if none survive it returns
// ErrEmptySchedule.
func (g Generator) Generate(req Request) ([]Task, error) {
	clockIn := strings.TrimSpace(req.ClockIn)
	clockOut := strings.TrimSpace(req.ClockOut)
	if clockIn == "" && clockOut == "" {
		return nil, ErrNoTimes
	}
	if len(req.Dates) == 0 {
		return nil, ErrNoDates
	}

	now := g.now()
	loc := g.location()
	var tasks []Task

	for _, dateStr := range req.Dates {
		day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", dateStr, err)
		}
		for _, slot := range []struct {
			clock  string
			action Action
		}{{clockIn, ActionIn}, {clockOut, ActionOut}} {
			if slot.clock == "" {
				continue
			}
			h, m, err := ParseClock(slot.clock)
			if err != nil {
				return nil, err
			}
			at := time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, loc)
			if req.Randomized {
				at = at.Add(time.Duration(g.jitter()) * time.Minute)
			}
			if now.Sub(at) > GraceWindow {
				continue
			}
			tasks = append(tasks, Task{Timestamp: at.UnixMilli(), Action: slot.action, DateStr: dateStr})
		}
	}

	if len(tasks) == 0 {
		return nil, ErrEmptySchedule
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Timestamp < tasks[j].Timestamp })
	return tasks, nil
}

// ParseClock parses an HH:MM time of day. Trailing input is rejected.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
