package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coopco/deskclock/internal/secrets"
)

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage channel tokens in the OS keyring",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <channel> [token]",
		Short: "Store a token; read from stdin when omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 2 {
				token = args[1]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token: %w", err)
				}
				token = strings.TrimSpace(line)
			}
			if err := secrets.Set(args[0], token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored token for %s\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <channel>",
		Short: "Remove a stored token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return secrets.Delete(args[0])
		},
	})
	return cmd
}
