package triage

import (
	"time"

	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/reconcile"
)

// Result describes how a run ended. Every run produces one, including
// failed runs, so callers can render and record it uniformly.
type Result struct {
	RunID    string      `json:"run_id"`
	Outcome  run.Outcome `json:"outcome"`
	Reason   string      `json:"reason,omitempty"`
	Window   run.Window  `json:"window"`
	Messages int         `json:"messages"`
	Expanded []string    `json:"expanded,omitempty"`

	Report    reconcile.Report `json:"report"`
	Summary   DailySummary     `json:"summary"`
	OpenTasks []task.Task      `json:"open_tasks"`
	Warnings  []string         `json:"warnings,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Err is set for failed runs, and for partial runs caused by stale
	// task references. A partial run's changes are still committed.
	Err error `json:"-"`
}

// Failed reports whether the run left the stores untouched because of an error.
func (r *Result) Failed() bool {
	return r.Outcome == run.OutcomeFailed
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
