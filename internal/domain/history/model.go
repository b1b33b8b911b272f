package history

import (
	"time"

	"github.com/rpggio/inboxtriage/internal/domain/run"
)

// Entry records the outcome of one pipeline run
type Entry struct {
	ID         int64       `json:"id"`
	RunID      string      `json:"run_id"`
	Mode       run.Mode    `json:"mode"`
	Since      time.Time   `json:"since"`
	Until      time.Time   `json:"until"`
	Outcome    run.Outcome `json:"outcome"`
	Messages   int         `json:"messages"`
	Expanded   int         `json:"expanded"`
	Applied    int         `json:"applied"`
	Skipped    int         `json:"skipped"`
	Reason     string      `json:"reason,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}
