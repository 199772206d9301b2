package bus

import (
	"fmt"
	"time"
)

// ResultType names the outcome of one task, as reported by the page session.
type ResultType string

const (
	ResultCompleted   ResultType = "TASK_COMPLETED"
	ResultSkippedOn   ResultType = "TASK_SKIPPED_ALREADY_ON"
	ResultSkippedOff  ResultType = "TASK_SKIPPED_ALREADY_OFF"
	ResultRetryFailed ResultType = "TASK_RETRY_FAILED"
	ResultFailed      ResultType = "TASK_FAILED"
)

// Fatal reports whether the result must deactivate the schedule.
func (t ResultType) Fatal() bool {
	return t == ResultFailed
}

// Result is the single message the page session sends to the coordinator
// after each task.
type Result struct {
	Type      ResultType
	Action    string // "IN" or "OUT", empty when unknown
	Timestamp int64  // task instant in epoch millis
	Observed  *bool  // toggle state seen on the failed verification
	Err       string // failure detail for TASK_FAILED
	At        time.Time
}

func (r Result) String() string {
	if r.Action == "" {
		return string(r.Type)
	}
	return fmt.Sprintf("%s(%s)", r.Type, r.Action)
}

// OutboundMessage is a human-readable notification for the channels.
type OutboundMessage struct {
	Channel  string            // target channel, empty for every channel
	Title    string            // short headline
	Content  string            // text body
	Priority string            // "min", "low", "default", "high", "urgent"
	Tags     []string          // presentation hints (emoji short codes)
	Metadata map[string]string // arbitrary metadata
}
