package run

import "time"

// Mode selects how the run window is computed
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeBackfill Mode = "backfill"
)

// Outcome summarises how a run ended
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// State is the persisted scheduling record.
type State struct {
	LastRunAt *time.Time `json:"last_run_at"`
}

// Window is the half-open interval [Since, Until) a run considers.
type Window struct {
	Mode  Mode      `json:"mode"`
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
	Days  int       `json:"days,omitempty"`
}
