package mocks

import (
	"context"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/repository"
	"github.com/stretchr/testify/mock"
)

// TaskRepository is a mock for repository.TaskRepository.
type TaskRepository struct {
	mock.Mock
}

func (m *TaskRepository) LoadTasks(ctx context.Context) ([]task.Task, error) {
	args := m.Called(ctx)
	if tasks, ok := args.Get(0).([]task.Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TaskRepository) SaveTasks(ctx context.Context, tasks []task.Task) error {
	args := m.Called(ctx, tasks)
	return args.Error(0)
}

// SenderRepository is a mock for repository.SenderRepository.
type SenderRepository struct {
	mock.Mock
}

func (m *SenderRepository) LoadSenders(ctx context.Context) (sender.Directory, error) {
	args := m.Called(ctx)
	if dir, ok := args.Get(0).(sender.Directory); ok {
		return dir, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SenderRepository) SaveSenders(ctx context.Context, dir sender.Directory) error {
	args := m.Called(ctx, dir)
	return args.Error(0)
}

// HistoryRepository is a mock for repository.HistoryRepository.
type HistoryRepository struct {
	mock.Mock
}

func (m *HistoryRepository) AppendHistory(ctx context.Context, entry *history.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *HistoryRepository) ListHistory(ctx context.Context, opts history.ListOptions) ([]history.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]history.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Store is a mock for repository.Store.
type Store struct {
	mock.Mock
}

func (m *Store) LoadTasks(ctx context.Context) ([]task.Task, error) {
	args := m.Called(ctx)
	if tasks, ok := args.Get(0).([]task.Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) SaveTasks(ctx context.Context, tasks []task.Task) error {
	args := m.Called(ctx, tasks)
	return args.Error(0)
}

func (m *Store) LoadSenders(ctx context.Context) (sender.Directory, error) {
	args := m.Called(ctx)
	if dir, ok := args.Get(0).(sender.Directory); ok {
		return dir, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) SaveSenders(ctx context.Context, dir sender.Directory) error {
	args := m.Called(ctx, dir)
	return args.Error(0)
}

func (m *Store) LoadState(ctx context.Context) (run.State, error) {
	args := m.Called(ctx)
	return args.Get(0).(run.State), args.Error(1)
}

func (m *Store) SaveState(ctx context.Context, state run.State) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *Store) LoadInstructions(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *Store) SaveInstructions(ctx context.Context, text string) error {
	args := m.Called(ctx, text)
	return args.Error(0)
}

func (m *Store) AppendHistory(ctx context.Context, entry *history.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *Store) ListHistory(ctx context.Context, opts history.ListOptions) ([]history.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]history.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Commit(ctx context.Context, batch repository.Batch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *Store) Close() error {
	args := m.Called()
	return args.Error(0)
}
