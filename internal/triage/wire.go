package triage

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/reconcile"
)

// kindUndecodable tags operations whose JSON could not be read at all; the
// reconciler skips them as invalid so they still show up in the report.
const kindUndecodable reconcile.Kind = "undecodable"

// wireTask is a task as inference emits it. Every field is optional.
type wireTask struct {
	ID            string      `json:"id,omitempty"`
	Description   *string     `json:"description,omitempty"`
	Status        *string     `json:"status,omitempty"`
	Priority      *flexInt    `json:"priority,omitempty"`
	DueDate       *string     `json:"due_date,omitempty"`
	Source        *string     `json:"source,omitempty"`
	Tags          *StringList `json:"tags,omitempty"`
	EmailThreadID *string     `json:"email_thread_id,omitempty"`
	OriginEmailID *string     `json:"origin_email_id,omitempty"`
}

// wireOp is one task operation: {"op": "add|update|close", ...}.
type wireOp struct {
	Op        string    `json:"op,omitempty"`
	Operation string    `json:"operation,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Task      *wireTask `json:"task,omitempty"`
	Fields    *wireTask `json:"fields,omitempty"`
}

// wireSender is a sender update. Absent fields are preserved on merge.
type wireSender struct {
	Email      string  `json:"email"`
	Name       *string `json:"name,omitempty"`
	Importance *string `json:"importance,omitempty"`
	Role       *string `json:"role,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	Pinned     *bool   `json:"pinned,omitempty"`
	Unpin      *bool   `json:"unpin,omitempty"`
}

// flexInt accepts 7, 7.0 and "7".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", b)
	}
	*f = flexInt(math.Round(n))
	return nil
}

func opKind(op string) reconcile.Kind {
	switch strings.ToLower(strings.TrimSpace(op)) {
	case "add", "create", "create-task", "new":
		return reconcile.KindCreateTask
	case "update", "update-task", "modify", "edit":
		return reconcile.KindUpdateTask
	case "close", "close-task", "complete", "done":
		return reconcile.KindCloseTask
	}
	return reconcile.Kind(strings.ToLower(strings.TrimSpace(op)))
}

// decodeOp normalises one wire operation.
func decodeOp(raw json.RawMessage) (reconcile.Operation, error) {
	var w wireOp
	if err := json.Unmarshal(raw, &w); err != nil {
		return reconcile.Operation{}, err
	}
	name := w.Op
	if name == "" {
		name = w.Operation
	}

	id := strings.TrimSpace(w.TaskID)
	if id == "" && w.Task != nil {
		id = strings.TrimSpace(w.Task.ID)
	}

	switch kind := opKind(name); kind {
	case reconcile.KindCreateTask:
		src := w.Task
		if src == nil {
			src = w.Fields
		}
		if src == nil {
			return reconcile.CreateTask(task.Patch{}), nil
		}
		return reconcile.CreateTask(src.patch(true)), nil
	case reconcile.KindUpdateTask:
		src := w.Fields
		if src == nil {
			src = w.Task
		}
		if src == nil {
			return reconcile.UpdateTask(id, task.Patch{}), nil
		}
		return reconcile.UpdateTask(id, src.patch(false)), nil
	case reconcile.KindCloseTask:
		return reconcile.CloseTask(id), nil
	default:
		return reconcile.Operation{Kind: kind, TaskID: id}, nil
	}
}

// patch converts wire fields. Provenance fields are only honoured on create.
// Values that fail to parse are passed through raw so the reconciler rejects
// the operation instead of silently dropping the field.
func (w *wireTask) patch(create bool) task.Patch {
	var p task.Patch
	if w.Description != nil {
		d := strings.TrimSpace(*w.Description)
		p.Description = &d
	}
	if w.Status != nil {
		st, err := task.ParseStatus(*w.Status)
		if err != nil {
			st = task.Status(*w.Status)
		}
		p.Status = &st
	}
	if w.Priority != nil {
		n := int(*w.Priority)
		p.Priority = &n
	}
	if w.DueDate != nil {
		d := normalizeDate(*w.DueDate)
		p.DueDate = &d
	}
	if w.Source != nil {
		src := task.ParseSource(*w.Source)
		p.Source = &src
	}
	if w.Tags != nil {
		p.Tags = append([]string{}, (*w.Tags)...)
	}
	if create {
		p.EmailThreadID = nonEmpty(w.EmailThreadID)
		p.OriginEmailID = nonEmpty(w.OriginEmailID)
	}
	return p
}

// normalizeDate trims timestamps down to their calendar date.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(task.DateLayout) {
		if _, err := time.Parse(task.DateLayout, s[:len(task.DateLayout)]); err == nil {
			return s[:len(task.DateLayout)]
		}
	}
	return s
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// decodeSender normalises one sender update.
func decodeSender(raw json.RawMessage) (sender.Patch, error) {
	var w wireSender
	if err := json.Unmarshal(raw, &w); err != nil {
		return sender.Patch{}, err
	}
	p := sender.Patch{
		Email: strings.TrimSpace(w.Email),
		Name:  nonEmpty(w.Name),
		Notes: w.Notes,
		Pin:   w.Pinned != nil && *w.Pinned,
		Unpin: w.Unpin != nil && *w.Unpin,
	}
	if w.Importance != nil {
		imp, err := sender.ParseImportance(*w.Importance)
		if err != nil {
			imp = sender.Importance(*w.Importance)
		}
		p.Importance = &imp
	}
	if w.Role != nil {
		role, err := sender.ParseRole(*w.Role)
		if err != nil {
			role = sender.Role(*w.Role)
		}
		p.Role = &role
	}
	return p, nil
}

// decodeTaskOps converts a list of raw operations, keeping undecodable
// entries as placeholders so they are reported rather than lost.
func decodeTaskOps(raws []json.RawMessage) ([]reconcile.Operation, []error) {
	ops := make([]reconcile.Operation, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		op, err := decodeOp(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("task op %d: %w", i, err))
			op = reconcile.Operation{Kind: kindUndecodable}
		}
		ops = append(ops, op)
	}
	return ops, errs
}

func decodeSenders(raws []json.RawMessage) ([]reconcile.Operation, []error) {
	ops := make([]reconcile.Operation, 0, len(raws))
	var errs []error
	for i, raw := range raws {
		p, err := decodeSender(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("sender %d: %w", i, err))
		}
		// an empty address is rejected by the reconciler and reported there
		ops = append(ops, reconcile.UpsertSender(p))
	}
	return ops, errs
}

// encodeOp renders an operation in wire form for prompts.
func encodeOp(op reconcile.Operation) wireOp {
	w := wireOp{TaskID: op.TaskID}
	switch op.Kind {
	case reconcile.KindCreateTask:
		w.Op = "add"
		w.TaskID = ""
		w.Task = encodePatch(op.Task)
	case reconcile.KindUpdateTask:
		w.Op = "update"
		w.Fields = encodePatch(op.Task)
	case reconcile.KindCloseTask:
		w.Op = "close"
	default:
		w.Op = string(op.Kind)
	}
	return w
}

func encodePatch(p task.Patch) *wireTask {
	w := &wireTask{
		Description:   p.Description,
		DueDate:       p.DueDate,
		EmailThreadID: p.EmailThreadID,
		OriginEmailID: p.OriginEmailID,
	}
	if p.Status != nil {
		s := string(*p.Status)
		w.Status = &s
	}
	if p.Priority != nil {
		n := flexInt(*p.Priority)
		w.Priority = &n
	}
	if p.Source != nil {
		s := string(*p.Source)
		w.Source = &s
	}
	if p.Tags != nil {
		tags := StringList(p.Tags)
		w.Tags = &tags
	}
	return w
}
