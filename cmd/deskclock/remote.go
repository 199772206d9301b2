package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/coopco/deskclock/internal/relay"
	"github.com/coopco/deskclock/internal/remote"
)

// newRemoteCmd publishes commands the way the phone controller does.
func newRemoteCmd(opts *rootOptions) *cobra.Command {
	var topicFlag string
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Publish a remote command to the command topic",
	}
	cmd.PersistentFlags().StringVar(&topicFlag, "topic", "", "notification topic (default: saved topic)")

	send := func(cmd *cobra.Command, c remote.Command) error {
		a, err := opts.open()
		if err != nil {
			return err
		}
		defer a.Close()

		topic := topicFlag
		if topic == "" {
			if topic, err = a.topic(); err != nil {
				return err
			}
		}
		if topic == "" {
			return errors.New("no topic: run `deskclock topic <name>` or pass --topic")
		}
		body, err := remote.Encode(c)
		if err != nil {
			return err
		}
		client := relay.New(a.cfg.Relay.BaseURL, time.Duration(a.cfg.Relay.TimeoutSeconds)*time.Second)
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		target := a.cfg.Relay.CommandTopicFor(topic)
		if err := client.PublishJSON(ctx, target, body); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", c.Kind(), target)
		return nil
	}

	flags := &scheduleFlags{}
	update := &cobra.Command{
		Use:   "update",
		Short: "Replace the schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(time.Now())
			if err != nil {
				return err
			}
			return send(cmd, remote.ScheduleUpdate{
				Dates:      req.Dates,
				ClockIn:    req.ClockIn,
				ClockOut:   req.ClockOut,
				Randomized: req.Randomized,
			})
		},
	}
	flags.register(update)

	cmd.AddCommand(
		update,
		&cobra.Command{
			Use:   "sync",
			Short: "Ask the daemon to publish its status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, remote.RequestSync{})
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Clear the schedule remotely",
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, remote.Stop{})
			},
		},
	)
	return cmd
}
