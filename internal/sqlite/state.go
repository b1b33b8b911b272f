package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/inboxtriage/internal/domain/run"
)

// StateRepository implements repository.StateRepository and
// repository.InstructionRepository for SQLite. Both are single-row tables.
type StateRepository struct {
	db *DB
}

// NewStateRepository creates a new StateRepository
func NewStateRepository(db *DB) *StateRepository {
	return &StateRepository{db: db}
}

// LoadState returns the run state; an empty table means no run yet.
func (r *StateRepository) LoadState(ctx context.Context) (run.State, error) {
	var last sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT last_run_at FROM run_state WHERE id = 1`).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return run.State{}, nil
	}
	if err != nil {
		return run.State{}, fmt.Errorf("failed to load run state: %w", err)
	}
	t, err := parseNullTime(last)
	if err != nil {
		return run.State{}, corrupt("run_state.last_run_at", err)
	}
	return run.State{LastRunAt: t}, nil
}

// SaveState stores the run state.
func (r *StateRepository) SaveState(ctx context.Context, st run.State) error {
	return saveState(ctx, r.db, st)
}

func saveState(ctx context.Context, q queryer, st run.State) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO run_state (id, last_run_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_run_at = excluded.last_run_at
	`, formatNullTime(st.LastRunAt))
	if err != nil {
		return fmt.Errorf("failed to save run state: %w", err)
	}
	return nil
}

// LoadInstructions returns the stored preference text, or "" if none.
func (r *StateRepository) LoadInstructions(ctx context.Context) (string, error) {
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM instructions WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load instructions: %w", err)
	}
	return body, nil
}

// SaveInstructions replaces the preference text.
func (r *StateRepository) SaveInstructions(ctx context.Context, text string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO instructions (id, body, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, text, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to save instructions: %w", err)
	}
	return nil
}
