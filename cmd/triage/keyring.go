package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpggio/inboxtriage/internal/secrets"
)

func keyringCmd(_ *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Store inference API keys in the OS keychain",
		Long: `Keys stored here are used when neither the environment nor the config
file provides one.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:       "set PROVIDER",
		Short:     "Read an API key from stdin and store it",
		Args:      cobra.ExactArgs(1),
		ValidArgs: secrets.Accounts,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !secrets.Available() {
				return fmt.Errorf("keychain is disabled")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "API key for %s: ", args[0])
			key, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && strings.TrimSpace(key) == "" {
				return fmt.Errorf("reading key: %w", err)
			}
			if err := secrets.Set(args[0], key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s key in the keychain.\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "delete PROVIDER",
		Short:     "Remove a stored API key",
		Args:      cobra.ExactArgs(1),
		ValidArgs: secrets.Accounts,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := secrets.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s key.\n", args[0])
			return nil
		},
	})
	return cmd
}
