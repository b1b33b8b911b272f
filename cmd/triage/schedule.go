package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cronlib "github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/lock"
	"github.com/rpggio/inboxtriage/internal/svc"
	"github.com/rpggio/inboxtriage/internal/triage"
)

func scheduleCmd(c *cli) *cobra.Command {
	var cronExpr string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run triage on a cron schedule until interrupted",
		Long: `Stay in the foreground and start a normal run on every tick of a
five-field cron expression (schedule.cron, default "0 7 * * *").
A tick that finds another run in progress is skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("cron") {
				c.cfg.Schedule.Cron = cronExpr
			}
			sched, err := cronlib.ParseStandard(c.cfg.Schedule.Cron)
			if err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", c.cfg.Schedule.Cron, err)
			}

			ctx := cmd.Context()
			sc, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer sc.Close()

			scheduler := cronlib.New()
			scheduler.Schedule(sched, cronlib.FuncJob(func() {
				scheduledRun(ctx, sc, c.logger)
			}))
			scheduler.Start()
			c.logger.Info("scheduler started", "cron", c.cfg.Schedule.Cron, "next", sched.Next(time.Now()))

			<-ctx.Done()
			c.logger.Info("scheduler stopping")
			// Wait for a run that is already underway.
			<-scheduler.Stop().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression, overrides schedule.cron")
	return cmd
}

func scheduledRun(ctx context.Context, sc *svc.ServiceContext, logger *slog.Logger) {
	res, err := sc.Run(ctx, triage.RunRequest{Mode: run.ModeNormal})
	switch {
	case errors.Is(err, lock.ErrLocked):
		logger.Warn("scheduled run skipped, another run holds the lock")
	case err != nil:
		logger.Error("scheduled run failed", "error", err)
	case res.Failed():
		logger.Error("scheduled run failed", "run_id", res.RunID, "reason", res.Reason)
	default:
		logger.Info("scheduled run finished",
			"run_id", res.RunID,
			"outcome", res.Outcome,
			"messages", res.Messages,
			"applied", res.Report.Applied,
		)
	}
}
