package scheduler

import (
	"context"
	"log/slog"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/page"
	"github.com/coopco/deskclock/internal/schedule"
)

// execute performs task. It returns true when nothing was clicked and the
// caller should plan the next task straight away.
func (s *Session) execute(ctx context.Context, task schedule.Task) bool {
	slog.Info("scheduler: executing", "task", task)

	checked, err := page.WaitForToggle(ctx, s.page, s.elementTimeout, s.pollInterval)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		slog.Error("scheduler: toggle unavailable", "task", task, "err", err)
		s.publish(bus.Result{Type: bus.ResultFailed, Action: string(task.Action), Timestamp: task.Timestamp, Err: err.Error()})
		return false
	}

	target := task.Action.Target()
	if checked == target {
		if err := schedule.MarkProcessed(s.store, task.Timestamp); err != nil {
			slog.Error("scheduler: record progress", "err", err)
			return false
		}
		result := bus.ResultSkippedOff
		if target {
			result = bus.ResultSkippedOn
		}
		slog.Info("scheduler: toggle already in target state", "task", task, "checked", checked)
		s.publish(bus.Result{Type: result, Action: string(task.Action), Timestamp: task.Timestamp})
		return true
	}

	if err := s.page.Click(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		slog.Error("scheduler: click failed", "task", task, "err", err)
		s.publish(bus.Result{Type: bus.ResultFailed, Action: string(task.Action), Timestamp: task.Timestamp, Err: err.Error()})
		return false
	}

	v := schedule.Verification{Task: task, Expected: target, Attempt: 1}
	if err := schedule.MarkClicked(s.store, v); err != nil {
		slog.Error("scheduler: record verification", "err", err)
		return false
	}
	slog.Info("scheduler: clicked, reloading to verify", "task", task, "settle", s.settleDelay)
	s.arm(s.now().Add(s.settleDelay), timerReload, task)
	return false
}
