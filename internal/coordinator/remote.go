package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coopco/deskclock/internal/relay"
	"github.com/coopco/deskclock/internal/remote"
	"github.com/coopco/deskclock/internal/schedule"
)

// PollRemote fetches the commands published since the last poll and
// applies them in order. Relay failures are logged and left to the next
// alarm.
func (c *Coordinator) PollRemote(ctx context.Context) {
	topic := c.Topic()
	if topic == "" {
		slog.Debug("coordinator: no topic configured, skipping poll")
		return
	}
	since := c.lastID
	if since == "" {
		since = c.cfg.PollWindow
	}
	envs, err := c.relay.Poll(ctx, c.cfg.CommandTopicFor(topic), since)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("coordinator: remote poll failed", "err", err)
		}
		return
	}
	for _, env := range envs {
		c.handleEnvelope(ctx, env)
	}
}

// stream delivers commands as they are published, reconnecting after
// failures. The poll alarm keeps running alongside it.
func (c *Coordinator) stream(ctx context.Context) {
	for ctx.Err() == nil {
		topic := c.Topic()
		if topic != "" {
			err := c.relay.Subscribe(ctx, c.cfg.CommandTopicFor(topic), "", func(env relay.Envelope) {
				select {
				case c.incoming <- env:
				case <-ctx.Done():
				}
			})
			if err != nil {
				slog.Warn("coordinator: command stream dropped", "err", err)
			}
		}
		select {
		case <-ctx.Done():
		case <-time.After(streamRetryDelay):
		}
	}
}

func (c *Coordinator) handleEnvelope(ctx context.Context, env relay.Envelope) {
	if env.ID != "" {
		if _, dup := c.seen[env.ID]; dup {
			return
		}
		if len(c.seen) >= maxSeen {
			clear(c.seen)
		}
		c.seen[env.ID] = struct{}{}
		c.lastID = env.ID
	}
	if env.Message == "" || remote.IsStatus(env.Message) {
		return
	}

	cmd, err := remote.Parse(env.Message)
	if err != nil {
		slog.Warn("coordinator: skipping remote message", "id", env.ID, "err", err)
		return
	}
	slog.Info("coordinator: remote command", "id", env.ID, "type", cmd.Kind())
	if err := c.Apply(ctx, cmd); err != nil {
		slog.Warn("coordinator: remote command not applied", "type", cmd.Kind(), "err", err)
	}
}

// Apply executes one remote command against the store.
func (c *Coordinator) Apply(ctx context.Context, cmd remote.Command) error {
	switch cmd := cmd.(type) {
	case remote.ScheduleUpdate:
		tasks, err := schedule.Activate(c.store, c.generator, cmd.Request())
		if err != nil {
			return fmt.Errorf("remote update: %w", err)
		}
		slog.Info("coordinator: remote schedule activated", "tasks", len(tasks))
		return nil
	case remote.RequestSync:
		sched, err := schedule.Load(c.store)
		if err != nil {
			return err
		}
		return c.pushStatus(ctx, sched)
	case remote.Stop:
		return schedule.Clear(c.store)
	default:
		return fmt.Errorf("%w: %T", remote.ErrUnknownType, cmd)
	}
}

// pushStatus publishes the status snapshot on the sync topic.
func (c *Coordinator) pushStatus(ctx context.Context, sched schedule.Schedule) error {
	topic := c.Topic()
	if topic == "" {
		return errors.New("no topic configured")
	}
	doc, err := remote.EncodeStatus(remote.Status{
		Tasks:      sched.Tasks,
		Active:     sched.Active,
		LastUpdate: c.now(),
		Source:     c.source,
	})
	if err != nil {
		return err
	}
	if err := c.relay.PublishJSON(ctx, c.cfg.SyncTopicFor(topic), doc); err != nil {
		slog.Warn("coordinator: status push failed", "err", err)
		return err
	}
	return nil
}
