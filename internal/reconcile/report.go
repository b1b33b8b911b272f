package reconcile

import (
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
)

// SkipReason explains why an operation was not applied
type SkipReason string

const (
	// SkipStaleReference marks an update or close naming a task that doesn't exist.
	SkipStaleReference SkipReason = "stale_reference"
	// SkipDuplicate marks a create already applied for the same origin message.
	SkipDuplicate SkipReason = "duplicate"
	// SkipInvalid marks an operation whose fields failed validation.
	SkipInvalid SkipReason = "invalid"
)

// Skip records one operation that was not applied
type Skip struct {
	Index  int        `json:"index"`
	Kind   Kind       `json:"kind"`
	Ref    string     `json:"ref,omitempty"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// Report summarises an Apply call
type Report struct {
	Applied        int      `json:"applied"`
	Skipped        []Skip   `json:"skipped,omitempty"`
	CreatedTaskIDs []string `json:"created_task_ids,omitempty"`
	NewSenders     []string `json:"new_senders,omitempty"`
}

// StaleReferences counts skips caused by unknown task IDs.
func (r Report) StaleReferences() int {
	n := 0
	for _, s := range r.Skipped {
		if s.Reason == SkipStaleReference {
			n++
		}
	}
	return n
}

// Snapshot is the in-memory state a run mutates
type Snapshot struct {
	Tasks   []task.Task      `json:"tasks"`
	Senders sender.Directory `json:"senders"`
}

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	senders := s.Senders.Clone()
	return Snapshot{Tasks: task.Clone(s.Tasks), Senders: senders}
}
