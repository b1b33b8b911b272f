package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/triage"
)

// Runner executes triage runs. The error is reserved for runs that could not
// start at all; run failures are reported in the result.
type Runner interface {
	Run(ctx context.Context, req triage.RunRequest) (*triage.Result, error)
}

// InstructionService defines instruction operations needed by MCP.
type InstructionService interface {
	Current(ctx context.Context) (string, error)
	Refine(ctx context.Context, feedback string) (string, error)
}

// TaskService defines task operations needed by MCP.
type TaskService interface {
	List(ctx context.Context, opts task.ListOptions) ([]task.Task, error)
	Add(ctx context.Context, req task.AddRequest) (*task.Task, error)
	Complete(ctx context.Context, id string) (*task.Task, error)
}

// SenderService defines sender directory operations needed by MCP.
type SenderService interface {
	List(ctx context.Context) ([]sender.Profile, error)
	Set(ctx context.Context, patch sender.Patch) (*sender.Profile, error)
}

// HistoryService defines run history operations needed by MCP.
type HistoryService interface {
	Recent(ctx context.Context, opts history.ListOptions) ([]history.Entry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Runner       Runner
	Instructions InstructionService
	Tasks        TaskService
	Senders      SenderService
	History      HistoryService
}

// Config contains server configuration.
type Config struct {
	Services Services
	// AuthToken, when set, is required as a bearer token in HTTP mode.
	AuthToken     string
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "inboxtriage",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Stdio mode never authenticates: the client owns the process.
	if cfg.TransportMode != "stdio" && cfg.AuthToken != "" {
		server.AddReceivingMiddleware(authMiddleware(cfg.AuthToken))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
