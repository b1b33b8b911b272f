package task

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Status represents the workflow state of a task
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusSnoozed    Status = "snoozed"
)

// Source records where a task came from
type Source string

const (
	SourceEmail  Source = "email"
	SourceManual Source = "manual"
	SourceOther  Source = "other"
)

const (
	MinPriority     = 1
	MaxPriority     = 10
	DefaultPriority = 5

	// DateLayout is the wire format for due dates.
	DateLayout = "2006-01-02"

	idPrefix = "task-"
)

// Task is an actionable item, usually derived from an email
type Task struct {
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	Status        Status    `json:"status"`
	Priority      int       `json:"priority"`
	DueDate       string    `json:"due_date,omitempty"`
	Source        Source    `json:"source"`
	Tags          []string  `json:"tags,omitempty"`
	EmailThreadID string    `json:"email_thread_id,omitempty"`
	OriginEmailID string    `json:"origin_email_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsOpen reports whether the task still needs attention.
func (t Task) IsOpen() bool {
	return t.Status != StatusDone
}

// Patch carries the fields an operation supplies. Nil means absent.
type Patch struct {
	Description   *string
	Status        *Status
	Priority      *int
	DueDate       *string
	Source        *Source
	Tags          []string
	EmailThreadID *string
	OriginEmailID *string
}

// Empty reports whether the patch supplies no fields at all.
func (p Patch) Empty() bool {
	return p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.DueDate == nil && p.Source == nil && p.Tags == nil &&
		p.EmailThreadID == nil && p.OriginEmailID == nil
}

// New builds a task from a create patch, filling documented defaults.
func New(id string, p Patch, now time.Time) Task {
	t := Task{
		ID:        id,
		Status:    StatusOpen,
		Priority:  DefaultPriority,
		Source:    SourceEmail,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.apply(p)
	return t
}

// Apply sets the supplied fields and refreshes UpdatedAt.
func (t *Task) Apply(p Patch, now time.Time) {
	t.apply(p)
	t.UpdatedAt = now
}

// Close forces the task to done and refreshes UpdatedAt.
func (t *Task) Close(now time.Time) {
	t.Status = StatusDone
	t.UpdatedAt = now
}

func (t *Task) apply(p Patch) {
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Source != nil {
		t.Source = *p.Source
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), p.Tags...)
	}
	if p.EmailThreadID != nil {
		t.EmailThreadID = *p.EmailThreadID
	}
	if p.OriginEmailID != nil {
		t.OriginEmailID = *p.OriginEmailID
	}
}

// FormatID renders the n-th task ID.
func FormatID(n int) string {
	return fmt.Sprintf("%s%04d", idPrefix, n)
}

// idNumber extracts the numeric suffix of a task ID.
func idNumber(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextID returns the ID following the highest numbered task. IDs are never reused.
func NextID(tasks []Task) string {
	highest := 0
	for _, t := range tasks {
		if n, ok := idNumber(t.ID); ok && n > highest {
			highest = n
		}
	}
	return FormatID(highest + 1)
}

// Find returns the index of the task with the given ID, or -1.
func Find(tasks []Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Prioritized returns a copy ordered for display: open work first, then
// priority descending, earliest due date, and ID.
func Prioritized(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsOpen() != b.IsOpen() {
			return a.IsOpen()
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.DueDate != b.DueDate {
			if a.DueDate == "" {
				return false
			}
			if b.DueDate == "" {
				return true
			}
			return a.DueDate < b.DueDate
		}
		return a.ID < b.ID
	})
	return out
}

// Clone deep-copies a task list.
func Clone(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		if t.Tags != nil {
			t.Tags = append([]string(nil), t.Tags...)
		}
		out[i] = t
	}
	return out
}
