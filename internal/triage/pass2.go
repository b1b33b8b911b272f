package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/inference"
	"github.com/rpggio/inboxtriage/internal/mail"
	"github.com/rpggio/inboxtriage/internal/reconcile"
)

// Synthesis is the second pass's result.
type Synthesis struct {
	// Ops holds the final task operations followed by sender upserts.
	Ops     []reconcile.Operation
	Summary DailySummary
}

// Synthesizer runs the full-body second pass.
type Synthesizer struct {
	completer inference.Completer
	opts      Options
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(c inference.Completer, opts Options, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Synthesizer{completer: c, opts: opts.withDefaults(), logger: logger}
}

type pass2Output struct {
	UpdatedSenders []json.RawMessage `json:"updated_senders"`
	FinalTaskOps   []json.RawMessage `json:"final_task_ops"`
	DailySummary   *DailySummary     `json:"daily_summary"`
}

// Synthesize produces the operations that will actually be applied.
// Transport failures return ErrRetrieval, unusable output ErrMalformedOutput.
func (s *Synthesizer) Synthesize(ctx context.Context, bodies []mail.Message, preliminary []reconcile.Operation, tasks []task.Task, dir sender.Directory, instructions string, today time.Time) (Synthesis, error) {
	req := pass2Request(s.opts, bodies, preliminary, newPassContext(instructions, tasks, dir))
	text, err := s.completer.Complete(ctx, req)
	if err != nil {
		return Synthesis{}, fmt.Errorf("%w: pass 2: %w", ErrRetrieval, err)
	}

	var out pass2Output
	if err := decodeValidated(pass2Schema, text, &out); err != nil {
		return Synthesis{}, fmt.Errorf("pass 2: %w", err)
	}

	taskOps, errs := decodeTaskOps(out.FinalTaskOps)
	senderOps, senderErrs := decodeSenders(out.UpdatedSenders)
	for _, e := range append(errs, senderErrs...) {
		s.logger.Warn("pass 2 entry undecodable", "error", e)
	}

	summary := DailySummary{}
	if out.DailySummary != nil {
		summary = *out.DailySummary
	}
	if summary.SummaryDate == "" {
		summary.SummaryDate = today.Format(task.DateLayout)
	}

	s.logger.Info("pass 2 complete", "bodies", len(bodies), "task_ops", len(taskOps), "sender_updates", len(senderOps),
		"critical", len(summary.CriticalEmails))
	return Synthesis{Ops: append(taskOps, senderOps...), Summary: summary}, nil
}
