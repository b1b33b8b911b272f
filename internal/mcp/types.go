package mcp

import (
	"time"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
)

// Tool inputs. Fields without omitempty are required.

type RunTriageParams struct {
	Days int `json:"days,omitempty" jsonschema:"Backfill this many days, including read mail. Omit for a normal run since the last run."`
}

type RefineInstructionsParams struct {
	Feedback string `json:"feedback" jsonschema:"What the triage should do differently, in plain language"`
}

type GetInstructionsParams struct{}

type ListTasksParams struct {
	IncludeDone bool   `json:"include_done,omitempty" jsonschema:"Include completed tasks"`
	Status      string `json:"status,omitempty" jsonschema:"Only tasks with this status: open, in_progress, done, snoozed"`
	Limit       int    `json:"limit,omitempty" jsonschema:"Maximum number of tasks"`
}

type AddTaskParams struct {
	Description string   `json:"description" jsonschema:"What needs to be done"`
	Priority    *int     `json:"priority,omitempty" jsonschema:"1-10, higher is more urgent (default 5)"`
	DueDate     string   `json:"due_date,omitempty" jsonschema:"YYYY-MM-DD"`
	Source      string   `json:"source,omitempty" jsonschema:"email, manual or other (default manual)"`
	Tags        []string `json:"tags,omitempty"`
}

type CompleteTaskParams struct {
	ID string `json:"id" jsonschema:"Task ID, e.g. task-0003"`
}

type ListSendersParams struct{}

type SetSenderParams struct {
	Email      string  `json:"email" jsonschema:"Sender address"`
	Name       *string `json:"name,omitempty"`
	Importance *string `json:"importance,omitempty" jsonschema:"high, normal or low"`
	Role       *string `json:"role,omitempty" jsonschema:"student, collaborator, admin, family, notification or other"`
	Notes      *string `json:"notes,omitempty"`
	Pin        bool    `json:"pin,omitempty" jsonschema:"Pin the sender so triage always treats them as important"`
	Unpin      bool    `json:"unpin,omitempty" jsonschema:"Remove the pin; wins over pin when both are set"`
}

type RecentRunsParams struct {
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum number of runs (default 20)"`
	Mode    string `json:"mode,omitempty" jsonschema:"normal or backfill"`
	Outcome string `json:"outcome,omitempty" jsonschema:"success, partial or failed"`
}

// Tool outputs.

type RunTriageResponse struct {
	RunID          string   `json:"run_id"`
	Outcome        string   `json:"outcome"`
	Reason         string   `json:"reason,omitempty"`
	Since          string   `json:"since"`
	Until          string   `json:"until"`
	Messages       int      `json:"messages"`
	Expanded       int      `json:"expanded"`
	Applied        int      `json:"applied"`
	Skipped        int      `json:"skipped"`
	CreatedTaskIDs []string `json:"created_task_ids,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	Summary        string   `json:"summary_markdown"`
}

type InstructionsResponse struct {
	Instructions string `json:"instructions"`
}

type TaskResponse struct {
	ID            string   `json:"id"`
	Description   string   `json:"description"`
	Status        string   `json:"status"`
	Priority      int      `json:"priority"`
	DueDate       string   `json:"due_date,omitempty"`
	Source        string   `json:"source"`
	Tags          []string `json:"tags,omitempty"`
	EmailThreadID string   `json:"email_thread_id,omitempty"`
	OriginEmailID string   `json:"origin_email_id,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

type SenderResponse struct {
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	Importance string `json:"importance"`
	Role       string `json:"role"`
	Pinned     bool   `json:"pinned"`
	Notes      string `json:"notes,omitempty"`
	LastSeenAt string `json:"last_seen_at,omitempty"`
}

type SenderListResponse struct {
	Senders []SenderResponse `json:"senders"`
}

type RunResponse struct {
	RunID      string `json:"run_id"`
	Mode       string `json:"mode"`
	Outcome    string `json:"outcome"`
	Since      string `json:"since"`
	Until      string `json:"until"`
	Messages   int    `json:"messages"`
	Expanded   int    `json:"expanded"`
	Applied    int    `json:"applied"`
	Skipped    int    `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

type RunListResponse struct {
	Runs []RunResponse `json:"runs"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toTaskResponse(t task.Task) TaskResponse {
	return TaskResponse{
		ID:            t.ID,
		Description:   t.Description,
		Status:        string(t.Status),
		Priority:      t.Priority,
		DueDate:       t.DueDate,
		Source:        string(t.Source),
		Tags:          t.Tags,
		EmailThreadID: t.EmailThreadID,
		OriginEmailID: t.OriginEmailID,
		CreatedAt:     formatTime(t.CreatedAt),
		UpdatedAt:     formatTime(t.UpdatedAt),
	}
}

func toSenderResponse(p sender.Profile) SenderResponse {
	resp := SenderResponse{
		Email:      p.Email,
		Name:       p.Name,
		Importance: string(p.Importance),
		Role:       string(p.Role),
		Pinned:     p.Pinned,
		Notes:      p.Notes,
	}
	if p.LastSeenAt != nil {
		resp.LastSeenAt = formatTime(*p.LastSeenAt)
	}
	return resp
}

func toRunResponse(e history.Entry) RunResponse {
	return RunResponse{
		RunID:      e.RunID,
		Mode:       string(e.Mode),
		Outcome:    string(e.Outcome),
		Since:      formatTime(e.Since),
		Until:      formatTime(e.Until),
		Messages:   e.Messages,
		Expanded:   e.Expanded,
		Applied:    e.Applied,
		Skipped:    e.Skipped,
		Reason:     e.Reason,
		StartedAt:  formatTime(e.StartedAt),
		FinishedAt: formatTime(e.FinishedAt),
	}
}
