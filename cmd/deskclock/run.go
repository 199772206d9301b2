package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coopco/deskclock/internal/bus"
	"github.com/coopco/deskclock/internal/channels"
	"github.com/coopco/deskclock/internal/config"
	"github.com/coopco/deskclock/internal/coordinator"
	"github.com/coopco/deskclock/internal/cron"
	"github.com/coopco/deskclock/internal/page"
	"github.com/coopco/deskclock/internal/relay"
	"github.com/coopco/deskclock/internal/schedule"
	"github.com/coopco/deskclock/internal/scheduler"
	"github.com/coopco/deskclock/internal/secrets"
	"github.com/coopco/deskclock/internal/ui"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var noPage bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the coordinator and the page session until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, a, noPage)
		},
	}
	cmd.Flags().BoolVar(&noPage, "no-page", false, "run only the coordinator (no browser)")
	return cmd
}

func runDaemon(ctx context.Context, a *app, noPage bool) error {
	cfg := a.cfg
	msgBus := bus.NewMessageBus(0)
	client := relay.New(cfg.Relay.BaseURL, time.Duration(cfg.Relay.TimeoutSeconds)*time.Second)

	alarms := cron.NewService()
	alarms.Start()
	defer alarms.Stop()

	coord, err := coordinator.New(coordinator.Config{
		Store:     a.store,
		Bus:       msgBus,
		Relay:     client,
		Alarms:    alarms,
		Indicator: ui.NewTerminalIndicator(os.Stdout),
		Generator: schedule.Generator{},
		Settings:  cfg.Relay,
	})
	if err != nil {
		return err
	}

	mgr := channels.NewManager(msgBus, channels.Deps{
		Relay: client,
		Topic: coord.Topic,
		Token: secrets.Token,
	})
	if err := addChannels(mgr, cfg); err != nil {
		return err
	}
	if err := mgr.StartAll(ctx); err != nil {
		return err
	}
	defer mgr.StopAll()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.store.Watch(ctx, time.Duration(cfg.Store.WatchIntervalMs)*time.Millisecond)
		return nil
	})
	g.Go(func() error {
		msgBus.DispatchOutbound(ctx)
		return nil
	})
	g.Go(func() error {
		return coord.Run(ctx)
	})
	if !noPage {
		g.Go(func() error {
			return runPage(ctx, a, msgBus)
		})
	}

	slog.Info("deskclock: running", "page", !noPage, "channels", mgr.Names(), "writer", a.store.Writer())
	return g.Wait()
}

func runPage(ctx context.Context, a *app, msgBus *bus.MessageBus) error {
	p, err := page.NewChrome(ctx, a.cfg.Page)
	if err != nil {
		return err
	}
	defer p.Close()

	sess := scheduler.NewSession(scheduler.SessionConfig{
		Store:            a.store,
		Page:             p,
		Bus:              msgBus,
		ElementTimeout:   a.cfg.Page.ElementTimeout(),
		PollInterval:     a.cfg.Page.PollInterval(),
		SettleDelay:      a.cfg.Page.SettleDelay(),
		RetrySettleDelay: a.cfg.Page.RetrySettleDelay(),
	})
	return sess.Run(ctx)
}

// addChannels adds ntfy and every enabled mirror. A mirror that cannot be
// created is logged and left out.
func addChannels(mgr *channels.Manager, cfg *config.Config) error {
	ntfy, err := json.Marshal(map[string]int{"timeoutSeconds": cfg.Relay.TimeoutSeconds})
	if err != nil {
		return err
	}
	if err := mgr.AddChannel("ntfy", ntfy); err != nil {
		return err
	}

	mirrors := []struct {
		name    string
		enabled bool
		cfg     any
	}{
		{"telegram", cfg.Channels.Telegram.Enabled, cfg.Channels.Telegram},
		{"discord", cfg.Channels.Discord.Enabled, cfg.Channels.Discord},
		{"slack", cfg.Channels.Slack.Enabled, cfg.Channels.Slack},
		{"email", cfg.Channels.Email.Enabled, cfg.Channels.Email},
		{"webhook", cfg.Channels.Webhook.Enabled, cfg.Channels.Webhook},
	}
	for _, m := range mirrors {
		if !m.enabled {
			continue
		}
		raw, err := json.Marshal(m.cfg)
		if err != nil {
			return fmt.Errorf("encode %s config: %w", m.name, err)
		}
		if err := mgr.AddChannel(m.name, raw); err != nil {
			slog.Warn("deskclock: mirror channel disabled", "channel", m.name, "err", err)
		}
	}
	return nil
}
