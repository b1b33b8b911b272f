package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rpggio/inboxtriage/internal/config"
	"github.com/rpggio/inboxtriage/internal/svc"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cli carries state shared by every subcommand.
type cli struct {
	cfgFile string
	verbose bool

	cfg     config.Config
	logger  *slog.Logger
	logFile io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "triage",
		Short: "Inference-assisted email triage and task tracking",
		Long: `triage reads new mail, asks a language model which messages matter,
keeps a prioritized task list and a sender directory up to date, and writes
a daily summary.

Examples:
  triage auth                      # authorize read-only mailbox access
  triage run                       # triage mail since the last run
  triage rescan --days 7           # re-read the last week, including read mail
  triage tasks list
  triage senders set boss@work.com --importance high --pin
  triage serve --transport http    # expose the tools over MCP`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logFile != nil {
				_ = c.logFile.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "YAML config file (default: $TRIAGE_CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		runCmd(c),
		rescanCmd(c),
		tasksCmd(c),
		showTasksCmd(c),
		sendersCmd(c),
		instructCmd(c),
		instructionsCmd(c),
		historyCmd(c),
		authCmd(c),
		serveCmd(c),
		scheduleCmd(c),
		keyringCmd(c),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	if c.cfgFile != "" {
		if err := os.Setenv("TRIAGE_CONFIG_PATH", c.cfgFile); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	c.cfg = cfg
	// stdout belongs to command output and, under serve, to JSON-RPC.
	return c.setupLogging(cmd.ErrOrStderr())
}

// setupLogging points the logger at w, or at the configured log file.
func (c *cli) setupLogging(w io.Writer) error {
	if c.logFile != nil {
		_ = c.logFile.Close()
		c.logFile = nil
	}
	if c.cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(c.cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			c.logFile = file
			w = fileWriter
		}
	}
	c.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: parseLogLevel(c.cfg.Log.Level),
	}))
	return nil
}

// open builds the service context. Callers close it.
func (c *cli) open(ctx context.Context) (*svc.ServiceContext, error) {
	sc, err := svc.NewServiceContext(ctx, c.cfg, c.logger, svc.Options{})
	if err != nil {
		return nil, fmt.Errorf("opening data store: %w", err)
	}
	return sc, nil
}
