// Package scheduler runs the page session: it picks the next due task,
// waits for it, clicks the toggle and verifies the click after a reload.
package scheduler

import (
	"time"

	"github.com/coopco/deskclock/internal/schedule"
)

const (
	// NormalThreshold lets a task fire up to a minute after its instant.
	NormalThreshold = -60 * time.Second
	// PostVerifyThreshold is used right after a verification completes so
	// the task just verified is not picked again.
	PostVerifyThreshold = time.Second

	KeepaliveHorizon = 10 * time.Minute
	KeepaliveLead    = 2 * time.Minute
)

// DecisionKind is the outcome of one planning pass.
type DecisionKind int

const (
	Idle      DecisionKind = iota // schedule inactive
	Exhausted                     // no task left; clear the schedule
	Keepalive                     // next task is far away; reload at Decision.At
	DueNow                        // execute immediately
	Wait                          // execute at Decision.At
)

func (k DecisionKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Exhausted:
		return "exhausted"
	case Keepalive:
		return "keepalive"
	case DueNow:
		return "due"
	case Wait:
		return "wait"
	}
	return "unknown"
}

type Decision struct {
	Kind DecisionKind
	Task schedule.Task
	At   time.Time // timer instant for Keepalive and Wait
}

// Plan selects what the session does next. It is a pure function of its
// inputs: calling it again with the same state yields the same decision.
func Plan(now time.Time, sched schedule.Schedule, lastProcessed int64, threshold time.Duration) Decision {
	if !sched.Active {
		return Decision{Kind: Idle}
	}

	for _, task := range sched.Tasks {
		if task.Timestamp == lastProcessed {
			continue
		}
		diff := task.Time().Sub(now)
		if diff <= threshold {
			continue
		}
		switch {
		case diff > KeepaliveHorizon:
			return Decision{Kind: Keepalive, Task: task, At: task.Time().Add(-KeepaliveLead)}
		case diff <= 0:
			return Decision{Kind: DueNow, Task: task}
		default:
			return Decision{Kind: Wait, Task: task, At: task.Time()}
		}
	}
	return Decision{Kind: Exhausted}
}
