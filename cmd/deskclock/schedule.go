package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/coopco/deskclock/internal/schedule"
	"github.com/coopco/deskclock/internal/ui"
)

type scheduleFlags struct {
	dates  []string
	in     string
	out    string
	random bool
}

func (f *scheduleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.dates, "dates", nil, "dates as YYYY-MM-DD, or today/tomorrow (comma separated)")
	cmd.Flags().StringVar(&f.in, "in", "", "clock-in time HH:MM")
	cmd.Flags().StringVar(&f.out, "out", "", "clock-out time HH:MM")
	cmd.Flags().BoolVar(&f.random, "random", false, "shift each time by up to five minutes")
}

func (f *scheduleFlags) request(now time.Time) (schedule.Request, error) {
	dates, err := expandDates(f.dates, now)
	if err != nil {
		return schedule.Request{}, err
	}
	return schedule.Request{Dates: dates, ClockIn: f.in, ClockOut: f.out, Randomized: f.random}, nil
}

// expandDates resolves the today and tomorrow keywords and drops duplicates.
func expandDates(in []string, now time.Time) ([]string, error) {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, d := range in {
		d = strings.TrimSpace(d)
		switch strings.ToLower(d) {
		case "":
			continue
		case "today":
			d = now.Format("2006-01-02")
		case "tomorrow":
			d = now.AddDate(0, 0, 1).Format("2006-01-02")
		default:
			if _, err := time.Parse("2006-01-02", d); err != nil {
				return nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD", d)
			}
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	flags := &scheduleFlags{}
	cmd := &cobra.Command{
		Use:     "schedule",
		Short:   "Generate and activate a schedule",
		Example: "  deskclock schedule --dates today,2026-10-21 --in 09:00 --out 17:30 --random",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(time.Now())
			if err != nil {
				return err
			}
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := schedule.Activate(a.store, schedule.Generator{}, req); err != nil {
				if errors.Is(err, schedule.ErrEmptySchedule) {
					return fmt.Errorf("nothing scheduled: %w", err)
				}
				return err
			}
			return printStatus(cmd, a)
		},
	}
	flags.register(cmd)
	return cmd
}

func newStopCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Clear the schedule and deactivate",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			if err := schedule.Clear(a.store); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Badge(false, 0))
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the schedule and progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()
			return printStatus(cmd, a)
		},
	}
}

func printStatus(cmd *cobra.Command, a *app) error {
	sched, err := schedule.Load(a.store)
	if err != nil {
		return err
	}
	last, err := schedule.LastProcessed(a.store)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprint(w, ui.RenderSchedule(sched, last, time.Now()))

	topic, err := a.topic()
	if err != nil {
		return err
	}
	if topic == "" {
		topic = "(none)"
	}
	fmt.Fprintf(w, "topic: %s\n", topic)

	v, err := schedule.PendingVerification(a.store)
	if err != nil {
		return err
	}
	if v != nil {
		fmt.Fprintf(w, "verifying: %s (attempt %d)\n", v.Task, v.Attempt)
	}
	return nil
}

func newTopicCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "topic [name]",
		Short: "Show or set the ntfy topic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open()
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				topic, err := a.topic()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), topic)
				return nil
			}
			topic := strings.TrimSpace(args[0])
			if topic == "" {
				return errors.New("topic name cannot be empty")
			}
			if err := schedule.SetTopic(a.store, topic); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "topic set to %s\n", topic)
			return nil
		},
	}
}
