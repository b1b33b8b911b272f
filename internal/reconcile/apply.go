package reconcile

import (
	"strings"
	"time"

	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
)

// Options carries the run context for Apply.
type Options struct {
	// RunAt stamps updated_at, created_at and last_seen_at.
	RunAt time.Time
	// Seen lists every sender that appeared in the run's messages.
	Seen []sender.Sighting
}

// Apply folds operations into a copy of the snapshot. The input is never
// modified and Apply never fails: operations that can't be applied are
// reported in Report.Skipped.
//
// Task operations run in list order. Sender upserts run after all task
// operations, followed by last_seen_at updates for Seen.
func Apply(snap Snapshot, ops []Operation, opts Options) (Snapshot, Report) {
	out := snap.Clone()
	if out.Senders == nil {
		out.Senders = sender.Directory{}
	}

	var report Report
	for i, op := range ops {
		if !op.IsTaskOp() {
			continue
		}
		if skip, ok := applyTaskOp(&out, op, opts.RunAt, &report); !ok {
			skip.Index = i
			report.Skipped = append(report.Skipped, skip)
		}
	}

	for i, op := range ops {
		switch {
		case op.Kind == KindUpsertSender:
			if err := sender.ValidatePatch(op.Sender); err != nil {
				report.Skipped = append(report.Skipped, Skip{
					Index: i, Kind: op.Kind, Ref: op.Ref(), Reason: SkipInvalid, Detail: err.Error(),
				})
				continue
			}
			p, created := out.Senders.Upsert(op.Sender)
			if created {
				report.NewSenders = append(report.NewSenders, p.Email)
			}
			report.Applied++
		case !op.IsTaskOp():
			report.Skipped = append(report.Skipped, Skip{
				Index: i, Kind: op.Kind, Reason: SkipInvalid, Detail: "unknown operation kind",
			})
		}
	}

	for _, s := range opts.Seen {
		if sender.ValidateAddress(s.Email) != nil {
			continue
		}
		key := sender.NormalizeAddress(s.Email)
		_, existed := out.Senders[key]
		out.Senders.Touch(s, opts.RunAt)
		if !existed {
			report.NewSenders = append(report.NewSenders, key)
		}
	}

	return out, report
}

func applyTaskOp(snap *Snapshot, op Operation, now time.Time, report *Report) (Skip, bool) {
	skip := Skip{Kind: op.Kind, Ref: op.Ref()}

	switch op.Kind {
	case KindCreateTask:
		if err := task.ValidateCreate(op.Task); err != nil {
			skip.Reason, skip.Detail = SkipInvalid, err.Error()
			return skip, false
		}
		if id, dup := duplicateOf(snap.Tasks, op.Task); dup {
			skip.Reason, skip.Detail = SkipDuplicate, "already created as "+id
			return skip, false
		}
		t := task.New(task.NextID(snap.Tasks), op.Task, now)
		snap.Tasks = append(snap.Tasks, t)
		report.CreatedTaskIDs = append(report.CreatedTaskIDs, t.ID)

	case KindUpdateTask, KindCloseTask:
		idx := task.Find(snap.Tasks, strings.TrimSpace(op.TaskID))
		if idx < 0 {
			skip.Reason = SkipStaleReference
			return skip, false
		}
		if op.Kind == KindCloseTask {
			snap.Tasks[idx].Close(now)
			break
		}
		if op.Task.Empty() {
			skip.Reason, skip.Detail = SkipInvalid, "update supplies no fields"
			return skip, false
		}
		if err := task.ValidatePatch(op.Task); err != nil {
			skip.Reason, skip.Detail = SkipInvalid, err.Error()
			return skip, false
		}
		snap.Tasks[idx].Apply(op.Task, now)
	}

	report.Applied++
	return Skip{}, true
}

// duplicateOf finds a task created earlier from the same message with the
// same description. Creates without an origin message are never duplicates.
func duplicateOf(tasks []task.Task, p task.Patch) (string, bool) {
	if p.OriginEmailID == nil || *p.OriginEmailID == "" || p.Description == nil {
		return "", false
	}
	desc := normalizeDescription(*p.Description)
	for _, t := range tasks {
		if t.OriginEmailID == *p.OriginEmailID && normalizeDescription(t.Description) == desc {
			return t.ID, true
		}
	}
	return "", false
}

func normalizeDescription(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
