package scheduler

import (
	"context"
	"log/slog"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/page"
	"github.com/coopco/deskclock/internal/schedule"
)

// verify checks the toggle after the reload that followed a click. A
// mismatch earns one more click; the second mismatch abandons the task.
func (s *Session) verify(ctx context.Context, v schedule.Verification) {
	slog.Info("scheduler: verifying", "task", v.Task, "attempt", v.Attempt)

	checked, err := page.WaitForToggle(ctx, s.page, s.elementTimeout, s.pollInterval)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("scheduler: toggle unavailable during verification", "task", v.Task, "err", err)
		s.clearVerification()
		s.publish(bus.Result{Type: bus.ResultFailed, Action: string(v.Action), Timestamp: v.Timestamp, Err: err.Error()})
		return
	}

	if checked == v.Expected {
		s.clearVerification()
		slog.Info("scheduler: verified", "task", v.Task)
		s.publish(bus.Result{Type: bus.ResultCompleted, Action: string(v.Action), Timestamp: v.Timestamp})
		s.reschedule(ctx, PostVerifyThreshold)
		return
	}

	if v.Attempt < schedule.MaxAttempts {
		slog.Warn("scheduler: verification mismatch, retrying", "task", v.Task, "observed", checked, "attempt", v.Attempt)
		if err := s.page.Click(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("scheduler: retry click failed", "task", v.Task, "err", err)
			s.clearVerification()
			s.publish(bus.Result{Type: bus.ResultFailed, Action: string(v.Action), Timestamp: v.Timestamp, Err: err.Error()})
			return
		}
		v.Attempt++
		if err := schedule.SaveVerification(s.store, v); err != nil {
			slog.Error("scheduler: record verification", "err", err)
			return
		}
		s.arm(s.now().Add(s.retrySettleDelay), timerReload, v.Task)
		return
	}

	slog.Error("scheduler: verification failed after retry", "task", v.Task, "observed", checked)
	s.clearVerification()
	observed := checked
	s.publish(bus.Result{Type: bus.ResultRetryFailed, Action: string(v.Action), Timestamp: v.Timestamp, Observed: &observed})
	s.reschedule(ctx, NormalThreshold)
}

func (s *Session) clearVerification() {
	if err := schedule.ClearVerification(s.store); err != nil {
		slog.Error("scheduler: clear verification", "err", err)
	}
}
