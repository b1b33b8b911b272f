package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/mcp"
	"github.com/rpggio/inboxtriage/internal/render"
	"github.com/rpggio/inboxtriage/internal/triage"
)

func runCmd(c *cli) *cobra.Command {
	var (
		instruct bool
		days     int
	)
	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"run-daily"},
		Short:   "Triage mail received since the last run",
		Long: `Run both inference passes over mail received since the last successful
run (the previous 24 hours on the first run), apply the resulting task and
sender changes, and print the daily summary.

With --days the run becomes a backfill over that many days, including read
mail, and does not move the last-run marker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := triage.RunRequest{Mode: run.ModeNormal}
			if days > 0 {
				req = triage.RunRequest{Mode: run.ModeBackfill, Days: days}
			}
			return c.runTriage(cmd, req, instruct)
		},
	}
	cmd.Flags().BoolVar(&instruct, "instruct", false, "afterwards, ask for feedback and refine the triage instructions")
	cmd.Flags().IntVar(&days, "days", 0, "backfill this many days instead of a normal run")
	return cmd
}

func rescanCmd(c *cli) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:     "rescan",
		Aliases: []string{"rescan-days"},
		Short:   "Re-triage the past N days without moving the last-run marker",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return run.ErrInvalidDays
			}
			return c.runTriage(cmd, triage.RunRequest{Mode: run.ModeBackfill, Days: days}, false)
		},
	}
	cmd.Flags().IntVar(&days, "days", 3, "number of days to scan")
	return cmd
}

func (c *cli) runTriage(cmd *cobra.Command, req triage.RunRequest, instruct bool) error {
	ctx := cmd.Context()
	sc, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer sc.Close()
	services := sc.Services()

	res, err := services.Runner.Run(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, render.Markdown(res))
	fmt.Fprintln(out, runStatus(res))
	fmt.Fprintf(out, "Summary written to %s\n", filepath.Join(c.cfg.OutputDir(), render.MarkdownFile))

	if instruct {
		refineInteractively(ctx, cmd.InOrStdin(), out, services.Instructions)
	}
	if res.Failed() {
		return res.Err
	}
	return nil
}

func instructCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "instruct [FEEDBACK]",
		Short: "Refine the triage instructions from feedback",
		Long: `Rewrite the stored triage instructions using your feedback. With no
argument, feedback is read from standard input until an empty line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sc, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer sc.Close()
			instructions := sc.Services().Instructions

			if len(args) == 0 {
				refineInteractively(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), instructions)
				return nil
			}
			text, err := instructions.Refine(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Instructions updated:")
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func instructionsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instructions",
		Short: "Inspect the triage instructions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current instructions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer sc.Close()
			text, err := sc.Instructions.Current(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	})
	return cmd
}

// refineInteractively collects multi-line feedback and refines the
// instructions. Failures are reported, never fatal: the stored text is
// simply left as it was.
func refineInteractively(ctx context.Context, in io.Reader, out io.Writer, instructions mcp.InstructionService) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "=== Instructions refinement ===")
	fmt.Fprintln(out, "What should the triage do differently? Mention mis-prioritized email,")
	fmt.Fprintln(out, "missing or unneeded tasks, or what 'important' means to you.")
	fmt.Fprintln(out, "End with an empty line.")

	feedback := readFeedback(in)
	if feedback == "" {
		fmt.Fprintln(out, "No feedback given; instructions unchanged.")
		return
	}
	text, err := instructions.Refine(ctx, feedback)
	if err != nil {
		reason := err.Error()
		if api := mcp.MapError(err); api != nil && api.RecoveryHint != "" {
			reason += " (" + api.RecoveryHint + ")"
		}
		fmt.Fprintf(out, "Could not refine instructions: %s\nInstructions unchanged.\n", reason)
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Instructions updated:")
	fmt.Fprint(out, text)
}

func readFeedback(in io.Reader) string {
	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" && len(lines) > 0 {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
