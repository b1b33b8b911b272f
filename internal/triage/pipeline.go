package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/inference"
	"github.com/rpggio/inboxtriage/internal/mail"
	"github.com/rpggio/inboxtriage/internal/reconcile"
	"github.com/rpggio/inboxtriage/internal/repository"
)

// RunRequest selects the run window.
type RunRequest struct {
	Mode run.Mode
	// Days is the backfill length; ignored for normal runs.
	Days int
}

// Pipeline orchestrates one triage run:
// window, list, pass 1, fetch, pass 2, reconcile, commit.
type Pipeline struct {
	store        repository.Store
	source       mail.Source
	selector     *Selector
	synthesizer  *Synthesizer
	instructions *InstructionService
	history      *history.Service
	opts         Options
	logger       *slog.Logger
	now          func() time.Time
}

// NewPipeline wires a pipeline from its collaborators.
func NewPipeline(store repository.Store, source mail.Source, completer inference.Completer, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts = opts.withDefaults()
	return &Pipeline{
		store:        store,
		source:       source,
		selector:     NewSelector(completer, opts, logger),
		synthesizer:  NewSynthesizer(completer, opts, logger),
		instructions: NewInstructionService(store, NewRefiner(completer, opts, logger), logger),
		history:      history.NewService(store, logger),
		opts:         opts,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Instructions exposes the pipeline's instruction service.
func (p *Pipeline) Instructions() *InstructionService {
	return p.instructions
}

// Run executes one run and records it in the history. It never returns an
// error directly: failures are reported through Result.Outcome and Result.Err.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) *Result {
	if req.Mode == "" {
		req.Mode = run.ModeNormal
	}
	res := &Result{RunID: uuid.NewString(), StartedAt: p.now()}
	log := p.logger.With("run_id", res.RunID, "mode", req.Mode)

	if err := p.run(ctx, req, res, log); err != nil {
		res.Outcome = run.OutcomeFailed
		res.Err = err
		res.Reason = err.Error()
		res.Summary = FailureSummary(res.StartedAt, err)
		log.Error("run failed, no changes applied", "error", err)
	}
	res.FinishedAt = p.now()

	p.record(ctx, req, res, log)
	return res
}

func (p *Pipeline) run(ctx context.Context, req RunRequest, res *Result, log *slog.Logger) error {
	now := res.StartedAt

	state, err := p.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("%w: loading run state: %w", ErrStoreIO, err)
	}
	window, err := run.ComputeWindow(req.Mode, state, now, req.Days)
	if err != nil {
		return err
	}
	res.Window = window
	log.Info("run starting", "since", window.Since, "until", window.Until)

	tasks, err := p.store.LoadTasks(ctx)
	if err != nil {
		return fmt.Errorf("%w: loading tasks: %w", ErrStoreIO, err)
	}
	senders, err := p.store.LoadSenders(ctx)
	if err != nil {
		return fmt.Errorf("%w: loading senders: %w", ErrStoreIO, err)
	}
	instructions, stored, err := p.instructions.load(ctx)
	if err != nil {
		return err
	}
	snap := reconcile.Snapshot{Tasks: tasks, Senders: senders}

	var summaries []mail.Summary
	cursor := now
	if window.Mode == run.ModeBackfill {
		summaries, err = p.listBackfill(ctx, window, req.Days, res)
	} else {
		summaries, cursor, err = p.listSince(ctx, window, res)
	}
	if err != nil {
		return err
	}
	res.Messages = len(summaries)

	var ops []reconcile.Operation
	if len(summaries) == 0 {
		log.Info("no messages in window, skipping inference")
		res.Summary = DailySummary{
			SummaryDate: now.Format(task.DateLayout),
			OtherNotes:  "No new messages in the selected window.",
		}
	} else {
		sel, err := p.selector.Select(ctx, summaries, tasks, senders, instructions)
		if err != nil {
			return err
		}
		for _, w := range sel.Warnings {
			res.warn(w)
		}
		res.Expanded = sel.Expand

		bodies, err := p.fetchBodies(ctx, sel.Expand, res, log)
		if err != nil {
			return err
		}

		syn, err := p.synthesizer.Synthesize(ctx, bodies, sel.Preliminary, tasks, senders, instructions, now)
		if err != nil {
			return err
		}
		ops = syn.Ops
		res.Summary = syn.Summary
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	next, report := reconcile.Apply(snap, ops, reconcile.Options{RunAt: now, Seen: sightings(summaries)})
	res.Report = report

	batch := repository.Batch{Tasks: next.Tasks, Senders: next.Senders}
	if window.Mode == run.ModeNormal {
		st := run.Commit(window.Mode, state, cursor)
		batch.State = &st
	}
	if err := p.store.Commit(ctx, batch); err != nil {
		return fmt.Errorf("%w: committing: %w", ErrStoreIO, err)
	}
	if !stored {
		if err := p.instructions.seed(ctx); err != nil {
			log.Warn("could not store default instructions", "error", err)
		}
	}

	res.OpenTasks = openTasks(next.Tasks)
	res.Outcome = run.OutcomeSuccess
	if len(report.Skipped) > 0 {
		res.Outcome = run.OutcomePartial
		res.Reason = describeSkips(report)
		if n := report.StaleReferences(); n > 0 {
			res.Err = fmt.Errorf("%w: %d operations skipped", ErrStaleReference, n)
		}
	}

	log.Info("run complete", "outcome", res.Outcome, "messages", res.Messages, "expanded", len(res.Expanded),
		"applied", report.Applied, "skipped", len(report.Skipped), "created", len(report.CreatedTaskIDs))
	return nil
}

// listSince lists unread messages for a normal run. When more than
// MaxMessages are waiting it keeps the oldest and returns the instant the
// next run continues from; otherwise the cursor is the window end.
func (p *Pipeline) listSince(ctx context.Context, window run.Window, res *Result) ([]mail.Summary, time.Time, error) {
	limit := p.opts.MaxMessages
	summaries, err := p.source.ListSummaries(ctx, mail.Query{Since: window.Since, Max: limit + 1, Oldest: true})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: listing messages: %w", ErrRetrieval, err)
	}
	if len(summaries) <= limit {
		return summaries, window.Until, nil
	}

	// newest first: the first entry is the one left for the next run
	next := summaries[0]
	summaries = summaries[1:]
	cursor := summaries[0].ReceivedAt
	for _, s := range summaries[1:] {
		if s.ReceivedAt.After(cursor) {
			cursor = s.ReceivedAt
		}
	}
	// a message sharing the cursor instant would be skipped by the next listing
	if !next.ReceivedAt.After(cursor) && cursor.Add(-time.Second).After(window.Since) {
		cursor = cursor.Add(-time.Second)
	}
	res.Window.Until = cursor
	res.warn(fmt.Sprintf("more than %d messages in the window; processed the oldest %d, the next run continues from %s",
		limit, limit, cursor.Format(time.RFC3339)))
	return summaries, cursor, nil
}

// listBackfill lists read and unread messages one day at a time, newest day
// first, so that each day gets its own MaxMessages allowance. Adjacent days
// overlap by a second and duplicates are dropped.
func (p *Pipeline) listBackfill(ctx context.Context, window run.Window, days int, res *Result) ([]mail.Summary, error) {
	var out []mail.Summary
	seen := make(map[string]bool)
	for day := range days {
		until := window.Until.Add(-time.Duration(day) * 24 * time.Hour)
		since := until.Add(-24*time.Hour - time.Second)
		if since.Before(window.Since) {
			since = window.Since
		}
		q := mail.Query{Since: since, Until: until, IncludeRead: true, Max: p.opts.MaxMessages}
		summaries, err := p.source.ListSummaries(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%w: listing messages for %s: %w", ErrRetrieval, until.Format(task.DateLayout), err)
		}
		if len(summaries) >= p.opts.MaxMessages {
			res.warn(fmt.Sprintf("day ending %s reached the %d message limit; older messages that day were not analyzed",
				until.Format(time.RFC3339), p.opts.MaxMessages))
		}
		for _, s := range summaries {
			if !seen[s.ID] {
				seen[s.ID] = true
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// fetchBodies retrieves full messages with bounded concurrency. Results keep
// the order of ids. Messages that vanished since listing are skipped.
func (p *Pipeline) fetchBodies(ctx context.Context, ids []string, res *Result, log *slog.Logger) ([]mail.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	slots := make([]*mail.Message, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.FetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			msg, err := p.source.FullBody(gctx, id)
			if errors.Is(err, mail.ErrMessageNotFound) {
				log.Warn("selected message no longer available", "id", id)
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w: fetching %s: %w", ErrRetrieval, id, err)
			}
			slots[i] = &msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bodies := make([]mail.Message, 0, len(ids))
	for _, m := range slots {
		if m != nil {
			bodies = append(bodies, *m)
		}
	}
	if missing := len(ids) - len(bodies); missing > 0 {
		res.warn(fmt.Sprintf("%d selected messages could not be fetched", missing))
	}
	log.Debug("bodies fetched", "requested", len(ids), "fetched", len(bodies))
	return bodies, nil
}

func (p *Pipeline) record(ctx context.Context, req RunRequest, res *Result, log *slog.Logger) {
	entry := &history.Entry{
		RunID:      res.RunID,
		Mode:       req.Mode,
		Since:      res.Window.Since,
		Until:      res.Window.Until,
		Outcome:    res.Outcome,
		Messages:   res.Messages,
		Expanded:   len(res.Expanded),
		Applied:    res.Report.Applied,
		Skipped:    len(res.Report.Skipped),
		Reason:     res.Reason,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
	// history is best effort and must not turn a committed run into a failure
	if err := p.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn("could not record run history", "error", err)
	}
}

func sightings(summaries []mail.Summary) []sender.Sighting {
	out := make([]sender.Sighting, 0, len(summaries))
	for _, s := range summaries {
		if s.SenderAddr == "" {
			continue
		}
		out = append(out, sender.Sighting{Email: s.SenderAddr, Name: s.SenderName})
	}
	return out
}

func openTasks(tasks []task.Task) []task.Task {
	var out []task.Task
	for _, t := range task.Prioritized(tasks) {
		if t.IsOpen() {
			out = append(out, t)
		}
	}
	return out
}

func describeSkips(r reconcile.Report) string {
	counts := map[reconcile.SkipReason]int{}
	for _, s := range r.Skipped {
		counts[s.Reason]++
	}
	var parts []string
	for _, reason := range []reconcile.SkipReason{reconcile.SkipStaleReference, reconcile.SkipDuplicate, reconcile.SkipInvalid} {
		if n := counts[reason]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ReplaceAll(string(reason), "_", " ")))
		}
	}
	return "skipped operations: " + strings.Join(parts, ", ")
}

// FailureSummary is the digest shown when a run could not complete.
func FailureSummary(at time.Time, err error) DailySummary {
	return DailySummary{
		SummaryDate: at.Format(task.DateLayout),
		CriticalEmails: []CriticalEmail{{
			EmailID:           "(none)",
			Summary:           "The triage run failed.",
			ReasonCritical:    err.Error(),
			RecommendedAction: "Check the log, credentials and model configuration, then run again.",
		}},
		OtherNotes: "Triage failed; no changes were applied.",
	}
}
