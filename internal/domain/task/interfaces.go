package task

import "context"

// Repository provides persistence for the task list.
type Repository interface {
	LoadTasks(ctx context.Context) ([]Task, error)
	SaveTasks(ctx context.Context, tasks []Task) error
}
