// Command deskclock keeps a desk-booking toggle in step with a clock-in and
// clock-out schedule, and relays the outcome through ntfy.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	dbPath     string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "deskclock",
		Short:         "Scheduled clock-in/clock-out for the desk-booking page",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.deskclock/config.json)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "state database (default ~/.config/deskclock/deskclock.db)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		newRunCmd(opts),
		newScheduleCmd(opts),
		newStopCmd(opts),
		newStatusCmd(opts),
		newTopicCmd(opts),
		newSecretCmd(),
		newRemoteCmd(opts),
	)
	return root
}
