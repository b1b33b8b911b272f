package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/repository"
)

// HistoryRepository implements repository.HistoryRepository for SQLite
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// AppendHistory inserts a run entry and sets its ID.
func (r *HistoryRepository) AppendHistory(ctx context.Context, entry *history.Entry) error {
	if entry == nil || entry.RunID == "" {
		return repository.ErrInvalidInput
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO run_history (
			run_id, mode, since, until, outcome,
			messages, expanded, applied, skipped, reason,
			started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.RunID,
		entry.Mode,
		formatTime(entry.Since),
		formatTime(entry.Until),
		entry.Outcome,
		entry.Messages,
		entry.Expanded,
		entry.Applied,
		entry.Skipped,
		entry.Reason,
		formatTime(entry.StartedAt),
		formatTime(entry.FinishedAt),
	)
	if err != nil {
		if isUniqueViolation(err) || isCheckViolation(err) {
			return fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
		}
		return fmt.Errorf("failed to append history: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}
	return nil
}

// ListHistory returns entries newest first.
func (r *HistoryRepository) ListHistory(ctx context.Context, opts history.ListOptions) ([]history.Entry, error) {
	query := `
		SELECT
			id, run_id, mode, since, until, outcome,
			messages, expanded, applied, skipped, reason,
			started_at, finished_at
		FROM run_history
	`

	var args []any
	var conditions []string
	if opts.Mode != nil {
		conditions = append(conditions, "mode = ?")
		args = append(args, *opts.Mode)
	}
	if opts.Outcome != nil {
		conditions = append(conditions, "outcome = ?")
		args = append(args, *opts.Outcome)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []history.Entry{}
	for rows.Next() {
		var e history.Entry
		var since, until, started, finished string
		if err := rows.Scan(
			&e.ID,
			&e.RunID,
			&e.Mode,
			&since,
			&until,
			&e.Outcome,
			&e.Messages,
			&e.Expanded,
			&e.Applied,
			&e.Skipped,
			&e.Reason,
			&started,
			&finished,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		for _, f := range []struct {
			dst *time.Time
			src string
		}{{&e.Since, since}, {&e.Until, until}, {&e.StartedAt, started}, {&e.FinishedAt, finished}} {
			t, err := parseTime(f.src)
			if err != nil {
				return nil, corrupt("history "+e.RunID, err)
			}
			*f.dst = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}
	return entries, nil
}
