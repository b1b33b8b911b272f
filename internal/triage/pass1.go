package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/inference"
	"github.com/rpggio/inboxtriage/internal/mail"
	"github.com/rpggio/inboxtriage/internal/reconcile"
)

// Selection is the first pass's result.
type Selection struct {
	// Expand lists message IDs to fetch in full, in summary order.
	Expand []string
	// Preliminary operations are advisory input to the second pass.
	Preliminary []reconcile.Operation
	// Degraded is set when the response was unusable and nothing was selected.
	Degraded bool
	Warnings []string
}

// Selector runs the metadata-only first pass.
type Selector struct {
	completer inference.Completer
	opts      Options
	logger    *slog.Logger
}

// NewSelector creates a Selector.
func NewSelector(c inference.Completer, opts Options, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Selector{completer: c, opts: opts.withDefaults(), logger: logger}
}

type pass1Output struct {
	EmailsToExpand []string          `json:"emails_to_expand"`
	TaskOps        []json.RawMessage `json:"task_ops"`
}

// Select asks which messages need full bodies. A transport failure returns
// ErrRetrieval; a malformed response degrades to an empty selection.
func (s *Selector) Select(ctx context.Context, summaries []mail.Summary, tasks []task.Task, dir sender.Directory, instructions string) (Selection, error) {
	req := pass1Request(s.opts, summaries, newPassContext(instructions, tasks, dir))
	text, err := s.completer.Complete(ctx, req)
	if err != nil {
		return Selection{}, fmt.Errorf("%w: pass 1: %w", ErrRetrieval, err)
	}

	var out pass1Output
	if err := decodeValidated(pass1Schema, text, &out); err != nil {
		s.logger.Warn("pass 1 output unusable, continuing without a selection", "error", err)
		return Selection{Degraded: true, Warnings: []string{"first pass output was malformed; no messages were expanded"}}, nil
	}

	var sel Selection
	sel.Expand, sel.Warnings = filterSelection(summaries, out.EmailsToExpand, s.logger)

	ops, errs := decodeTaskOps(out.TaskOps)
	for _, e := range errs {
		s.logger.Warn("pass 1 operation undecodable", "error", e)
	}
	for _, op := range ops {
		if op.Kind != kindUndecodable {
			sel.Preliminary = append(sel.Preliminary, op)
		}
	}

	s.logger.Info("pass 1 complete", "summaries", len(summaries), "expand", len(sel.Expand), "preliminary_ops", len(sel.Preliminary))
	return sel, nil
}

// filterSelection keeps requested IDs that belong to the input set, in
// summary order and without duplicates.
func filterSelection(summaries []mail.Summary, requested []string, logger *slog.Logger) ([]string, []string) {
	wanted := make(map[string]bool, len(requested))
	known := make(map[string]bool, len(summaries))
	for _, s := range summaries {
		known[s.ID] = true
	}

	var foreign []string
	for _, id := range requested {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if !known[id] {
			foreign = append(foreign, id)
			continue
		}
		wanted[id] = true
	}

	var warnings []string
	if len(foreign) > 0 {
		logger.Warn("pass 1 selected unknown message IDs", "ids", foreign)
		warnings = append(warnings, fmt.Sprintf("ignored %d message IDs not in this run", len(foreign)))
	}

	expand := make([]string, 0, len(wanted))
	for _, s := range summaries {
		if wanted[s.ID] {
			expand = append(expand, s.ID)
			delete(wanted, s.ID)
		}
	}
	return expand, warnings
}
