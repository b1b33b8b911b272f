package repository

import (
	"context"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
)

// TaskRepository manages task list persistence
type TaskRepository interface {
	LoadTasks(ctx context.Context) ([]task.Task, error)
	SaveTasks(ctx context.Context, tasks []task.Task) error
}

// SenderRepository manages sender directory persistence
type SenderRepository interface {
	LoadSenders(ctx context.Context) (sender.Directory, error)
	SaveSenders(ctx context.Context, dir sender.Directory) error
}

// StateRepository manages run state persistence
type StateRepository interface {
	LoadState(ctx context.Context) (run.State, error)
	SaveState(ctx context.Context, state run.State) error
}

// InstructionRepository manages the user's preference text
type InstructionRepository interface {
	LoadInstructions(ctx context.Context) (string, error)
	SaveInstructions(ctx context.Context, text string) error
}

// HistoryRepository manages the run log
type HistoryRepository interface {
	AppendHistory(ctx context.Context, entry *history.Entry) error
	ListHistory(ctx context.Context, opts history.ListOptions) ([]history.Entry, error)
}

// Batch is the full result of a reconciliation, written as one unit.
// A nil State leaves the stored run state untouched.
type Batch struct {
	Tasks   []task.Task
	Senders sender.Directory
	State   *run.State
}

// Committer writes a reconciliation result atomically
type Committer interface {
	Commit(ctx context.Context, batch Batch) error
}

// Store is a complete record store backend
type Store interface {
	TaskRepository
	SenderRepository
	StateRepository
	InstructionRepository
	HistoryRepository
	Committer
	Close() error
}
