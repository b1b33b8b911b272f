package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rpggio/inboxtriage/internal/mcp"
)

func serveCmd(c *cli) *cobra.Command {
	var (
		transport string
		host      string
		port      int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the triage tools over MCP",
		Long: `Expose run_triage, the task tools, the sender tools and the run history
to an MCP client. stdio is the default; http listens on server.host:server.port
and requires server.auth_token as a bearer token when one is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("transport") {
				c.cfg.Server.Transport = transport
			}
			if flags.Changed("host") {
				c.cfg.Server.Host = host
			}
			if flags.Changed("port") {
				c.cfg.Server.Port = port
			}
			mode := c.cfg.Server.Transport
			if mode != "stdio" && mode != "http" {
				return fmt.Errorf("unknown transport %q (want stdio or http)", mode)
			}
			if mode == "http" && c.cfg.Log.Path == "" {
				if err := c.setupLogging(os.Stdout); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			sc, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer sc.Close()

			server := mcp.NewServer(mcp.Config{
				Services:      sc.Services(),
				AuthToken:     c.cfg.Server.AuthToken,
				TransportMode: mode,
				Version:       version,
				Logger:        c.logger,
			})

			if mode == "stdio" {
				return runStdio(ctx, c.logger, server)
			}
			addr := net.JoinHostPort(c.cfg.Server.Host, strconv.Itoa(c.cfg.Server.Port))
			return runHTTP(ctx, c.logger, server, addr)
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "", "stdio or http")
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP listen port")
	return cmd
}

func runStdio(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server) error {
	logger.Info("starting stdio transport", "auth", "disabled")

	// Run blocks until stdin closes or ctx is canceled.
	if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

func runHTTP(ctx context.Context, logger *slog.Logger, server *sdkmcp.Server, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mcp.NewHTTPHandler(server, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	waitForShutdown(logger, httpServer)
	return nil
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
