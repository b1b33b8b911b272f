package reconcile

import (
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
)

// Kind tags an operation
type Kind string

const (
	KindCreateTask   Kind = "create-task"
	KindUpdateTask   Kind = "update-task"
	KindCloseTask    Kind = "close-task"
	KindUpsertSender Kind = "upsert-sender"
)

// Operation is an inert instruction produced by inference or a manual command.
type Operation struct {
	Kind   Kind         `json:"kind"`
	TaskID string       `json:"task_id,omitempty"`
	Task   task.Patch   `json:"-"`
	Sender sender.Patch `json:"-"`
}

// CreateTask builds a create-task operation.
func CreateTask(p task.Patch) Operation {
	return Operation{Kind: KindCreateTask, Task: p}
}

// UpdateTask builds an update-task operation.
func UpdateTask(id string, p task.Patch) Operation {
	return Operation{Kind: KindUpdateTask, TaskID: id, Task: p}
}

// CloseTask builds a close-task operation.
func CloseTask(id string) Operation {
	return Operation{Kind: KindCloseTask, TaskID: id}
}

// UpsertSender builds an upsert-sender operation.
func UpsertSender(p sender.Patch) Operation {
	return Operation{Kind: KindUpsertSender, Sender: p}
}

// IsTaskOp reports whether the operation targets the task list.
func (o Operation) IsTaskOp() bool {
	return o.Kind == KindCreateTask || o.Kind == KindUpdateTask || o.Kind == KindCloseTask
}

// Ref names the entity an operation targets, for reporting.
func (o Operation) Ref() string {
	switch o.Kind {
	case KindUpsertSender:
		return sender.NormalizeAddress(o.Sender.Email)
	case KindCreateTask:
		if o.Task.Description != nil {
			return *o.Task.Description
		}
		return ""
	default:
		return o.TaskID
	}
}
