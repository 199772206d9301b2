package coordinator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/schedule"
)

// HandleResult turns a task result into a notification. A fatal result
// also deactivates the schedule.
func (c *Coordinator) HandleResult(r bus.Result) {
	slog.Info("coordinator: task result", "result", r.String())
	if r.Type.Fatal() {
		if err := schedule.Deactivate(c.store); err != nil {
			slog.Error("coordinator: deactivate after failure", "err", err)
		}
	}
	c.bus.PublishOutbound(Compose(r))
}

// Compose renders r as a human-readable notification for every channel.
func Compose(r bus.Result) bus.OutboundMessage {
	verb := "Clock in"
	if r.Action == string(schedule.ActionOut) {
		verb = "Clock out"
	}
	at := "now"
	if r.Timestamp > 0 {
		at = time.UnixMilli(r.Timestamp).Format("15:04")
	}

	msg := bus.OutboundMessage{
		Metadata: map[string]string{"result": string(r.Type), "action": r.Action},
	}
	switch r.Type {
	case bus.ResultCompleted:
		msg.Title = verb + " done"
		msg.Content = fmt.Sprintf("%s at %s verified.", verb, at)
		msg.Priority = "default"
		msg.Tags = []string{"white_check_mark"}
	case bus.ResultSkippedOn:
		msg.Title = "Already clocked in"
		msg.Content = fmt.Sprintf("%s at %s skipped: the toggle was already on.", verb, at)
		msg.Priority = "low"
		msg.Tags = []string{"information_source"}
	case bus.ResultSkippedOff:
		msg.Title = "Already clocked out"
		msg.Content = fmt.Sprintf("%s at %s skipped: the toggle was already off.", verb, at)
		msg.Priority = "low"
		msg.Tags = []string{"information_source"}
	case bus.ResultRetryFailed:
		state := "unknown"
		if r.Observed != nil {
			state = "off"
			if *r.Observed {
				state = "on"
			}
		}
		msg.Title = verb + " failed"
		msg.Content = fmt.Sprintf("%s at %s did not stick after a retry; the toggle is %s.", verb, at, state)
		msg.Priority = "high"
		msg.Tags = []string{"warning"}
	case bus.ResultFailed:
		msg.Title = "Desk clock stopped"
		msg.Content = fmt.Sprintf("%s at %s failed", verb, at)
		if r.Err != "" {
			msg.Content += ": " + r.Err
		}
		msg.Content += ". The schedule has been deactivated."
		msg.Priority = "urgent"
		msg.Tags = []string{"rotating_light"}
	default:
		msg.Title = "Desk clock"
		msg.Content = r.String()
		msg.Priority = "default"
	}
	return msg
}
