package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/repository"
)

// TaskRepository implements repository.TaskRepository for SQLite
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// LoadTasks returns every task in ID order.
func (r *TaskRepository) LoadTasks(ctx context.Context) ([]task.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, status, priority, due_date, source, tags,
		       email_thread_id, origin_email_id, created_at, updated_at
		FROM tasks
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	defer rows.Close()

	tasks := []task.Task{}
	for rows.Next() {
		var t task.Task
		var tags, createdAt, updatedAt string
		if err := rows.Scan(
			&t.ID,
			&t.Description,
			&t.Status,
			&t.Priority,
			&t.DueDate,
			&t.Source,
			&tags,
			&t.EmailThreadID,
			&t.OriginEmailID,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
			return nil, corrupt("task "+t.ID+" tags", err)
		}
		if len(t.Tags) == 0 {
			t.Tags = nil
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, corrupt("task "+t.ID+" created_at", err)
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, corrupt("task "+t.ID+" updated_at", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

// SaveTasks replaces the stored task list.
func (r *TaskRepository) SaveTasks(ctx context.Context, tasks []task.Task) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		return saveTasks(ctx, tx, tasks)
	})
}

func saveTasks(ctx context.Context, q queryer, tasks []task.Task) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	for _, t := range tasks {
		tags, err := json.Marshal(nonNil(t.Tags))
		if err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO tasks (
				id, description, status, priority, due_date, source, tags,
				email_thread_id, origin_email_id, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID,
			t.Description,
			t.Status,
			t.Priority,
			t.DueDate,
			t.Source,
			string(tags),
			t.EmailThreadID,
			t.OriginEmailID,
			formatTime(t.CreatedAt),
			formatTime(t.UpdatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) || isCheckViolation(err) {
				return fmt.Errorf("%w: task %s: %v", repository.ErrInvalidInput, t.ID, err)
			}
			return fmt.Errorf("failed to save task %s: %w", t.ID, err)
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
