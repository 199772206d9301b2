package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/page"
	"github.com/coopco/deskclock/internal/schedule"
	"github.com/coopco/deskclock/internal/store"
)

type timerKind int

const (
	timerExecute timerKind = iota
	timerReload
)

// Session is the scheduler bound to one page. All of its state lives in
// the Run goroutine; the only state that outlives a reload is what it
// writes to the store.
type Session struct {
	store *store.Store
	page  page.Page
	bus   *bus.MessageBus
	now   func() time.Time

	elementTimeout   time.Duration
	pollInterval     time.Duration
	settleDelay      time.Duration
	retrySettleDelay time.Duration

	changed chan struct{}

	// the single outstanding timer
	timer     *time.Timer
	timerKind timerKind
	timerTask schedule.Task
	timerAt   time.Time
}

// SessionConfig holds the dependencies and delays of a Session.
type SessionConfig struct {
	Store            *store.Store
	Page             page.Page
	Bus              *bus.MessageBus
	Now              func() time.Time
	ElementTimeout   time.Duration
	PollInterval     time.Duration
	SettleDelay      time.Duration
	RetrySettleDelay time.Duration
}

func NewSession(cfg SessionConfig) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	elementTimeout := cfg.ElementTimeout
	if elementTimeout <= 0 {
		elementTimeout = 10 * time.Second
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	settle := cfg.SettleDelay
	if settle <= 0 {
		settle = 5 * time.Second
	}
	retrySettle := cfg.RetrySettleDelay
	if retrySettle <= 0 {
		retrySettle = 2 * settle
	}
	return &Session{
		store:            cfg.Store,
		page:             cfg.Page,
		bus:              cfg.Bus,
		now:              now,
		elementTimeout:   elementTimeout,
		pollInterval:     pollInterval,
		settleDelay:      settle,
		retrySettleDelay: retrySettle,
		changed:          make(chan struct{}, 1),
	}
}

// Run drives the page until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	unsubscribe := s.store.Subscribe(s.onChange)
	defer unsubscribe()
	defer s.stopTimer()

	s.load(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.changed:
			s.scheduleChanged(ctx)
		case <-s.timerC():
			s.fire(ctx)
		}
	}
}

// onChange runs on the writer's goroutine; it only wakes the Run loop.
func (s *Session) onChange(c store.Change) {
	if c.Scope != store.ScopeSync || !c.Has(store.KeyIsActive, store.KeyScheduledTasks) {
		return
	}
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Session) scheduleChanged(ctx context.Context) {
	v, err := schedule.PendingVerification(s.store)
	if err != nil {
		slog.Error("scheduler: read verification", "err", err)
		return
	}
	if v != nil {
		// a reload is pending; replanning now would cancel it
		slog.Debug("scheduler: schedule changed during verification, ignoring", "task", v.Task)
		return
	}
	slog.Debug("scheduler: schedule changed, replanning")
	s.reschedule(ctx, NormalThreshold)
}

// load is the entry point of every page lifetime: the first start and each
// reload. A stored verification intent takes precedence over planning.
func (s *Session) load(ctx context.Context) {
	v, err := schedule.PendingVerification(s.store)
	if err != nil {
		slog.Error("scheduler: read verification", "err", err)
		return
	}
	if v != nil {
		s.verify(ctx, *v)
		return
	}
	s.reschedule(ctx, NormalThreshold)
}

// reschedule recomputes the next step from scratch and cancels whatever
// timer was armed before.
func (s *Session) reschedule(ctx context.Context, threshold time.Duration) {
	s.stopTimer()
	for {
		sched, err := schedule.Load(s.store)
		if err != nil {
			slog.Error("scheduler: load schedule", "err", err)
			return
		}
		last, err := schedule.LastProcessed(s.store)
		if err != nil {
			slog.Error("scheduler: load progress", "err", err)
			return
		}

		d := Plan(s.now(), sched, last, threshold)
		switch d.Kind {
		case Idle:
			slog.Debug("scheduler: inactive")
		case Exhausted:
			slog.Info("scheduler: no tasks left, deactivating")
			if err := schedule.Clear(s.store); err != nil {
				slog.Error("scheduler: clear schedule", "err", err)
			}
		case Keepalive:
			slog.Info("scheduler: next task is far away, scheduling keepalive reload",
				"task", d.Task, "reload", humanize.Time(d.At))
			s.arm(d.At, timerReload, d.Task)
		case Wait:
			slog.Info("scheduler: next action", "task", d.Task, "due", humanize.Time(d.At))
			s.arm(d.At, timerExecute, d.Task)
		case DueNow:
			if s.execute(ctx, d.Task) {
				threshold = NormalThreshold
				continue
			}
		}
		return
	}
}

func (s *Session) arm(at time.Time, kind timerKind, task schedule.Task) {
	s.stopTimer()
	d := at.Sub(s.now())
	if d < 0 {
		d = 0
	}
	s.timer = time.NewTimer(d)
	s.timerKind = kind
	s.timerTask = task
	s.timerAt = at
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// timerC returns nil when no timer is armed, which blocks forever in select.
func (s *Session) timerC() <-chan time.Time {
	if s.timer == nil {
		return nil
	}
	return s.timer.C
}

func (s *Session) fire(ctx context.Context) {
	kind, task := s.timerKind, s.timerTask
	s.timer = nil
	switch kind {
	case timerExecute:
		if s.execute(ctx, task) {
			s.reschedule(ctx, NormalThreshold)
		}
	case timerReload:
		s.reload(ctx)
	}
}

// reload refreshes the page and starts a new page lifetime.
func (s *Session) reload(ctx context.Context) {
	if err := s.page.Reload(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("scheduler: reload failed", "err", err)
	}
	s.load(ctx)
}

func (s *Session) publish(r bus.Result) {
	r.At = s.now()
	s.bus.PublishResult(r)
}
