package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpggio/inboxtriage/internal/mail/gmail"
)

func authCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize read-only access to the mailbox",
		Long: `Open the Google consent page, wait for the redirect on localhost:` + gmail.CallbackPort + `
and cache the resulting token. The OAuth client secrets file comes from
mail.credentials_path (TRIAGE_GMAIL_CREDENTIALS).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := gmail.Authorize(cmd.Context(), gmail.AuthConfig{
				CredentialsPath: c.cfg.Mail.CredentialsPath,
				TokenPath:       c.cfg.Mail.TokenPath,
				Interactive:     true,
				Prompt:          cmd.OutOrStdout(),
			}, c.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", c.cfg.Mail.TokenPath)
			return nil
		},
	}
}
