// Package coordinator is the long-lived background context: it polls the
// relay for remote commands, applies them to the store, turns task results
// into notifications and keeps the indicator in step with the schedule.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/config"
	"github.com/coopco/deskclock/internal/cron"
	"github.com/coopco/deskclock/internal/relay"
	"github.com/coopco/deskclock/internal/schedule"
	"github.com/coopco/deskclock/internal/store"
)

// PollAlarm is the name of the recurring remote poll.
const PollAlarm = "pollRemote"

const (
	streamRetryDelay = 30 * time.Second
	maxSeen          = 256
)

// Indicator shows whether the schedule is active.
type Indicator interface {
	Show(active bool, pending int)
}

type Coordinator struct {
	store     *store.Store
	bus       *bus.MessageBus
	relay     *relay.Client
	alarms    *cron.Service
	indicator Indicator
	generator schedule.Generator
	cfg       config.RelayConfig
	pollEvery time.Duration
	source    string
	now       func() time.Time

	pollTick chan struct{}
	changed  chan struct{}
	incoming chan relay.Envelope

	// owned by the Run goroutine
	lastID string
	seen   map[string]struct{}
}

// Config holds all dependencies and settings for a Coordinator.
type Config struct {
	Store     *store.Store
	Bus       *bus.MessageBus
	Relay     *relay.Client
	Alarms    *cron.Service
	Indicator Indicator // optional
	Generator schedule.Generator
	Settings  config.RelayConfig
	Now       func() time.Time
}

func New(cfg Config) (*Coordinator, error) {
	every := time.Minute
	if cfg.Settings.PollEvery != "" {
		d, err := time.ParseDuration(cfg.Settings.PollEvery)
		if err != nil {
			return nil, fmt.Errorf("parse relay.pollEvery: %w", err)
		}
		every = d
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		store:     cfg.Store,
		bus:       cfg.Bus,
		relay:     cfg.Relay,
		alarms:    cfg.Alarms,
		indicator: cfg.Indicator,
		generator: cfg.Generator,
		cfg:       cfg.Settings,
		pollEvery: every,
		source:    "deskclock-" + uuid.NewString(),
		now:       now,
		pollTick:  make(chan struct{}, 1),
		changed:   make(chan struct{}, 1),
		incoming:  make(chan relay.Envelope, 16),
		seen:      make(map[string]struct{}),
	}, nil
}

// Run processes alarms, remote commands, store changes and task results
// until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	unsubscribe := c.store.Subscribe(c.onChange)
	defer unsubscribe()

	if err := c.alarms.Create(PollAlarm, c.pollEvery, c.signalPoll); err != nil {
		return err
	}
	defer c.alarms.Clear(PollAlarm)

	if strings.EqualFold(c.cfg.Mode, "ws") {
		go c.stream(ctx)
	}

	c.refreshIndicator()
	c.PollRemote(ctx)

	slog.Info("coordinator: started", "pollEvery", c.pollEvery, "mode", c.cfg.Mode, "nextPoll", c.alarms.Next(PollAlarm))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.pollTick:
			c.PollRemote(ctx)
		case env := <-c.incoming:
			c.handleEnvelope(ctx, env)
		case <-c.changed:
			c.scheduleChanged(ctx)
		case r := <-c.bus.Results():
			c.HandleResult(r)
		}
	}
}

func (c *Coordinator) signalPoll() {
	select {
	case c.pollTick <- struct{}{}:
	default:
	}
}

// onChange runs on the writer's goroutine; it only wakes the Run loop.
func (c *Coordinator) onChange(ch store.Change) {
	if ch.Scope != store.ScopeSync || !ch.Has(store.KeyIsActive, store.KeyScheduledTasks) {
		return
	}
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Topic returns the notification topic: the one saved in the store, or the
// configured fallback.
func (c *Coordinator) Topic() string {
	topic, err := schedule.Topic(c.store)
	if err != nil {
		slog.Warn("coordinator: read topic", "err", err)
	}
	if topic = strings.TrimSpace(topic); topic != "" {
		return topic
	}
	return strings.TrimSpace(c.cfg.Topic)
}

func (c *Coordinator) refreshIndicator() (schedule.Schedule, bool) {
	sched, err := schedule.Load(c.store)
	if err != nil {
		slog.Error("coordinator: load schedule", "err", err)
		return schedule.Schedule{}, false
	}
	if c.indicator != nil {
		c.indicator.Show(sched.Active, len(sched.Tasks))
	}
	return sched, true
}

func (c *Coordinator) scheduleChanged(ctx context.Context) {
	sched, ok := c.refreshIndicator()
	if !ok {
		return
	}
	slog.Debug("coordinator: schedule changed", "active", sched.Active, "tasks", len(sched.Tasks))
	if c.cfg.SyncOnChange {
		c.pushStatus(ctx, sched)
	}
}
