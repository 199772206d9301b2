package schedule

import (
	"fmt"
	"time"
)

// Action is the desired state of the toggle after a task runs.
type Action string

const (
	ActionIn  Action = "IN"  // toggle should be on
	ActionOut Action = "OUT" // toggle should be off
)

// Target returns the checked state the toggle must end up in.
func (a Action) Target() bool {
	return a == ActionIn
}

func (a Action) Valid() bool {
	return a == ActionIn || a == ActionOut
}

// Task is one timestamped toggle action. Tasks are immutable once generated.
type Task struct {
	Timestamp int64  `json:"timestamp"` // epoch millis
	Action    Action `json:"action"`
	DateStr   string `json:"dateStr"`
}

func (t Task) Time() time.Time {
	return time.UnixMilli(t.Timestamp)
}

func (t Task) String() string {
	return fmt.Sprintf("%s@%s", t.Action, t.Time().Format("2006-01-02 15:04"))
}

// Schedule is the sync-scope document produced by the generator.
type Schedule struct {
	Tasks      []Task
	Active     bool
	ClockIn    string
	ClockOut   string
	Dates      []string
	Randomized bool
}

// Verification is the continuation record that survives a page reload.
// Attempt starts at 1 for the original click.
type Verification struct {
	Task
	Expected bool `json:"expected"`
	Attempt  int  `json:"attempt"`
}

// MaxAttempts bounds the clicks made for one task: the original click and
// a single retry.
const MaxAttempts = 2
