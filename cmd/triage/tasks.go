package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpggio/inboxtriage/internal/domain/task"
)

func tasksCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List, add and complete tasks",
	}
	cmd.AddCommand(taskListCmd(c, "list"), taskAddCmd(c), taskCompleteCmd(c))
	return cmd
}

// showTasksCmd keeps the old top-level name working.
func showTasksCmd(c *cli) *cobra.Command {
	cmd := taskListCmd(c, "show-tasks")
	cmd.Hidden = true
	return cmd
}

func taskListCmd(c *cli, use string) *cobra.Command {
	var (
		all    bool
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: "List tasks, highest priority first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := task.ListOptions{IncludeDone: all, Limit: limit}
			if status != "" {
				st, err := task.ParseStatus(status)
				if err != nil {
					return err
				}
				opts.Status = &st
			}

			sc, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer sc.Close()

			tasks, err := sc.Services().Tasks.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tasksTable(tasks))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed tasks")
	cmd.Flags().StringVar(&status, "status", "", "only tasks with this status (open, in_progress, done, snoozed)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of tasks")
	return cmd
}

func taskAddCmd(c *cli) *cobra.Command {
	var (
		priority int
		due      string
		source   string
		tags     []string
	)
	cmd := &cobra.Command{
		Use:     "add DESCRIPTION",
		Aliases: []string{"add-task"},
		Short:   "Add a task by hand",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := task.AddRequest{
				Description: strings.Join(args, " "),
				DueDate:     strings.TrimSpace(due),
				Source:      source,
				Tags:        tags,
			}
			if cmd.Flags().Changed("priority") {
				req.Priority = &priority
			}

			sc, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer sc.Close()

			t, err := sc.Services().Tasks.Add(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %s (priority %d): %s\n", t.ID, t.Priority, t.Description)
			return nil
		},
	}
	cmd.Flags().IntVarP(&priority, "priority", "p", task.DefaultPriority, "priority 1-10, higher is more urgent")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&source, "source", string(task.SourceManual), "where the task came from (manual, email, other)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag, repeatable")
	return cmd
}

func taskCompleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "complete ID",
		Aliases: []string{"done", "complete-task"},
		Short:   "Mark a task done",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer sc.Close()

			t, err := sc.Services().Tasks.Complete(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s done: %s\n", t.ID, t.Description)
			return nil
		},
	}
}
