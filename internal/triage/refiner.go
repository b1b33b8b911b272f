package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/inboxtriage/internal/inference"
)

// Refiner folds user feedback into the preference text with one inference call.
type Refiner struct {
	completer inference.Completer
	opts      Options
	logger    *slog.Logger
}

// NewRefiner creates a Refiner.
func NewRefiner(c inference.Completer, opts Options, logger *slog.Logger) *Refiner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Refiner{completer: c, opts: opts.withDefaults(), logger: logger}
}

type refineOutput struct {
	Instructions string `json:"instructions"`
}

// Refine returns revised preference text. It never writes anything.
func (r *Refiner) Refine(ctx context.Context, current, feedback string) (string, error) {
	if strings.TrimSpace(feedback) == "" {
		return "", ErrEmptyFeedback
	}

	text, err := r.completer.Complete(ctx, refineRequest(r.opts, current, feedback))
	if err != nil {
		return "", fmt.Errorf("%w: refine: %w", ErrRetrieval, err)
	}

	var out refineOutput
	if err := decodeValidated(refineSchema, text, &out); err != nil {
		return "", fmt.Errorf("refine: %w", err)
	}
	revised := strings.TrimSpace(out.Instructions)
	if revised == "" {
		return "", fmt.Errorf("%w: refine returned empty instructions", ErrMalformedOutput)
	}

	r.logger.Info("instructions refined", "old_chars", len(current), "new_chars", len(revised))
	return revised + "\n", nil
}
