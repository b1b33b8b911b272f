package inference

import (
	"context"
	"log/slog"
	"time"
)

type loggingCompleter struct {
	next     Completer
	provider string
	model    string
	logger   *slog.Logger
}

// WithLogging wraps a Completer with debug traffic logging.
func WithLogging(next Completer, provider, model string, logger *slog.Logger) Completer {
	if logger == nil {
		return next
	}
	return &loggingCompleter{next: next, provider: provider, model: model, logger: logger}
}

func (c *loggingCompleter) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	c.logger.Debug("inference traffic", "stage", "request", "provider", c.provider, "model", c.model,
		"json", req.JSON, "prompt_chars", len(req.System)+len(req.User))

	out, err := c.next.Complete(ctx, req)
	if err != nil {
		c.logger.Debug("inference traffic", "stage", "response", "provider", c.provider,
			"elapsed", time.Since(start), "error", err)
		return "", err
	}
	c.logger.Debug("inference traffic", "stage", "response", "provider", c.provider,
		"elapsed", time.Since(start), "response_chars", len(out))
	return out, nil
}
