package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpggio/inboxtriage/internal/domain/sender"
)

func sendersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "senders",
		Short: "Inspect and edit the sender directory",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"list-senders"},
		Short:   "List known senders, pinned and high-importance first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer sc.Close()

			profiles, err := sc.Services().Senders.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), sendersTable(profiles))
			return nil
		},
	})
	cmd.AddCommand(senderSetCmd(c))
	return cmd
}

func senderSetCmd(c *cli) *cobra.Command {
	var (
		name, importance, role, notes string
		pin, unpin                    bool
	)
	cmd := &cobra.Command{
		Use:     "set EMAIL",
		Aliases: []string{"set-sender"},
		Short:   "Create or update a sender profile",
		Long: `Create or update a sender profile. Only the flags you pass change;
everything else is kept. --unpin wins over --pin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := sender.Patch{Email: args[0], Pin: pin, Unpin: unpin}
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("notes") {
				patch.Notes = &notes
			}
			if flags.Changed("importance") {
				imp, err := sender.ParseImportance(importance)
				if err != nil {
					return fmt.Errorf("%w: want high, normal or low", err)
				}
				patch.Importance = &imp
			}
			if flags.Changed("role") {
				r, err := sender.ParseRole(role)
				if err != nil {
					return fmt.Errorf("%w: want student, collaborator, admin, family, notification or other", err)
				}
				patch.Role = &r
			}
			if err := sender.ValidateAddress(patch.Email); err != nil {
				return fmt.Errorf("%q: %w", patch.Email, err)
			}

			sc, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer sc.Close()

			p, err := sc.Services().Senders.Set(cmd.Context(), patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated sender %s: importance=%s, role=%s, pinned=%t\n",
				p.Email, p.Importance, p.Role, p.Pinned)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&importance, "importance", "", "high, normal or low")
	cmd.Flags().StringVar(&role, "role", "", "student, collaborator, admin, family, notification or other")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes shown to the model")
	cmd.Flags().BoolVar(&pin, "pin", false, "always treat this sender as important")
	cmd.Flags().BoolVar(&unpin, "unpin", false, "remove the pin")
	return cmd
}
