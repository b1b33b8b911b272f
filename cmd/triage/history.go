package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
)

func historyCmd(c *cli) *cobra.Command {
	var (
		limit int
		mode  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent triage runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := history.ListOptions{Limit: limit}
			if mode != "" {
				m, err := run.ParseMode(mode)
				if err != nil {
					return err
				}
				opts.Mode = &m
			}

			sc, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer sc.Close()

			entries, err := sc.History.Recent(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), historyTable(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "number of runs to show")
	cmd.Flags().StringVar(&mode, "mode", "", "only normal or backfill runs")
	return cmd
}
