// Package svc builds the store and services one triage process works with.
package svc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rpggio/inboxtriage/internal/config"
	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/filestore"
	"github.com/rpggio/inboxtriage/internal/inference"
	"github.com/rpggio/inboxtriage/internal/lock"
	"github.com/rpggio/inboxtriage/internal/mail"
	"github.com/rpggio/inboxtriage/internal/mail/gmail"
	"github.com/rpggio/inboxtriage/internal/mcp"
	"github.com/rpggio/inboxtriage/internal/render"
	"github.com/rpggio/inboxtriage/internal/repository"
	"github.com/rpggio/inboxtriage/internal/sqlite"
	"github.com/rpggio/inboxtriage/internal/triage"
)

// Options overrides collaborators. Zero values select Gmail and the
// configured inference provider, both resolved on first use.
type Options struct {
	Source    mail.Source
	Completer inference.Completer
	Clock     func() time.Time
	// SkipFiles disables writing daily_summary.md and daily_summary.html.
	SkipFiles bool
}

// ServiceContext owns the record store and everything built on it.
type ServiceContext struct {
	Config config.Config
	Store  repository.Store

	Pipeline     *triage.Pipeline
	Tasks        *task.Service
	Senders      *sender.Service
	History      *history.Service
	Instructions *triage.InstructionService

	skipFiles bool
	logger    *slog.Logger
}

// NewServiceContext opens the configured store and wires the services.
// Mail and inference credentials are not touched until a run needs them,
// so read-only commands work without them.
func NewServiceContext(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*ServiceContext, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	source := opts.Source
	if source == nil {
		source = &lazySource{open: func(ctx context.Context) (mail.Source, error) {
			return openGmail(ctx, cfg, logger)
		}}
	}
	completer := opts.Completer
	if completer == nil {
		completer = lazyCompleter(cfg, logger)
	}

	temperature := cfg.Inference.Temperature
	pipeline := triage.NewPipeline(store, source, completer, triage.Options{
		Temperature:      &temperature,
		Pass1MaxTokens:   cfg.Inference.Pass1MaxTokens,
		Pass2MaxTokens:   cfg.Inference.Pass2MaxTokens,
		RefineMaxTokens:  cfg.Inference.RefineMaxTokens,
		MaxMessages:      cfg.Mail.MaxMessages,
		FetchConcurrency: cfg.Mail.FetchConcurrency,
	}, logger)
	tasks := task.NewService(store, logger)
	if opts.Clock != nil {
		pipeline.WithClock(opts.Clock)
		tasks.WithClock(opts.Clock)
	}

	return &ServiceContext{
		Config:       cfg,
		Store:        store,
		Pipeline:     pipeline,
		Tasks:        tasks,
		Senders:      sender.NewService(store, logger),
		History:      history.NewService(store, logger),
		Instructions: pipeline.Instructions(),
		skipFiles:    opts.SkipFiles,
		logger:       logger,
	}, nil
}

// OpenStore opens the record store selected by cfg.Store.Backend.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		path := cfg.DBPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("preparing database path: %w", err)
		}
		return sqlite.Open(ctx, path, logger)
	case "json", "":
		return filestore.New(cfg.DataDir, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Close releases the store.
func (s *ServiceContext) Close() error {
	return s.Store.Close()
}

// Run executes one triage run under the data-directory lock and writes the
// rendered summary. A failed run is reported through the result, not the
// error; the error is reserved for lock contention.
func (s *ServiceContext) Run(ctx context.Context, req triage.RunRequest) (*triage.Result, error) {
	var res *triage.Result
	err := s.locked(func() error {
		res = s.Pipeline.Run(ctx, req)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !s.skipFiles {
		files, err := render.WriteFiles(s.Config.OutputDir(), res)
		if err != nil {
			s.logger.Warn("could not write summary files", "error", err)
		} else {
			s.logger.Info("summary written", "markdown", files.Markdown, "html", files.HTML)
		}
	}
	return res, nil
}

// Services exposes the context through the interfaces the MCP server and
// the CLI share. Mutations take the data-directory lock.
func (s *ServiceContext) Services() mcp.Services {
	return mcp.Services{
		Runner:       s,
		Instructions: lockedInstructions{s},
		Tasks:        lockedTasks{s},
		Senders:      lockedSenders{s},
		History:      s.History,
	}
}

func (s *ServiceContext) locked(fn func() error) error {
	l, err := lock.Acquire(s.Config.LockPath())
	if err != nil {
		return err
	}
	defer func() {
		if err := l.Release(); err != nil {
			s.logger.Warn("could not release lock", "error", err)
		}
	}()
	return fn()
}

type lockedTasks struct{ s *ServiceContext }

func (t lockedTasks) List(ctx context.Context, opts task.ListOptions) ([]task.Task, error) {
	return t.s.Tasks.List(ctx, opts)
}

func (t lockedTasks) Add(ctx context.Context, req task.AddRequest) (*task.Task, error) {
	var out *task.Task
	err := t.s.locked(func() error {
		var err error
		out, err = t.s.Tasks.Add(ctx, req)
		return err
	})
	return out, err
}

func (t lockedTasks) Complete(ctx context.Context, id string) (*task.Task, error) {
	var out *task.Task
	err := t.s.locked(func() error {
		var err error
		out, err = t.s.Tasks.Complete(ctx, id)
		return err
	})
	return out, err
}

type lockedSenders struct{ s *ServiceContext }

func (l lockedSenders) List(ctx context.Context) ([]sender.Profile, error) {
	return l.s.Senders.List(ctx)
}

func (l lockedSenders) Set(ctx context.Context, patch sender.Patch) (*sender.Profile, error) {
	var out *sender.Profile
	err := l.s.locked(func() error {
		var err error
		out, err = l.s.Senders.Set(ctx, patch)
		return err
	})
	return out, err
}

type lockedInstructions struct{ s *ServiceContext }

func (l lockedInstructions) Current(ctx context.Context) (string, error) {
	return l.s.Instructions.Current(ctx)
}

func (l lockedInstructions) Refine(ctx context.Context, feedback string) (string, error) {
	var out string
	err := l.s.locked(func() error {
		var err error
		out, err = l.s.Instructions.Refine(ctx, feedback)
		return err
	})
	return out, err
}

// lazySource opens the real mailbox on first use. A failed open is retried
// on the next call.
type lazySource struct {
	mu   sync.Mutex
	open func(ctx context.Context) (mail.Source, error)
	src  mail.Source
}

func (l *lazySource) get(ctx context.Context) (mail.Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.src != nil {
		return l.src, nil
	}
	src, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	l.src = src
	return src, nil
}

func (l *lazySource) ListSummaries(ctx context.Context, q mail.Query) ([]mail.Summary, error) {
	src, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return src.ListSummaries(ctx, q)
}

func (l *lazySource) FullBody(ctx context.Context, id string) (mail.Message, error) {
	src, err := l.get(ctx)
	if err != nil {
		return mail.Message{}, err
	}
	return src.FullBody(ctx, id)
}

func openGmail(ctx context.Context, cfg config.Config, logger *slog.Logger) (mail.Source, error) {
	// The token source refreshes with this context long after the first call returns.
	ctx = context.WithoutCancel(ctx)
	httpClient, err := gmail.HTTPClient(ctx, gmail.AuthConfig{
		CredentialsPath: cfg.Mail.CredentialsPath,
		TokenPath:       cfg.Mail.TokenPath,
	}, logger)
	if err != nil {
		return nil, err
	}
	return gmail.New(ctx, httpClient, gmail.WithBodyLimit(cfg.Mail.BodyLimit), gmail.WithLogger(logger))
}

func lazyCompleter(cfg config.Config, logger *slog.Logger) inference.Completer {
	var (
		mu sync.Mutex
		c  inference.Completer
	)
	return inference.CompleterFunc(func(ctx context.Context, req inference.Request) (string, error) {
		mu.Lock()
		if c == nil {
			built, err := inference.New(inference.Config{
				Provider: cfg.Inference.Provider,
				Model:    cfg.Inference.Model,
				APIKey:   cfg.Inference.APIKey,
				BaseURL:  cfg.Inference.BaseURL,
			}, logger)
			if err != nil {
				mu.Unlock()
				return "", err
			}
			c = built
		}
		mu.Unlock()
		return c.Complete(ctx, req)
	})
}
