package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/repository"
)

// SenderRepository implements repository.SenderRepository for SQLite
type SenderRepository struct {
	db *DB
}

// NewSenderRepository creates a new SenderRepository
func NewSenderRepository(db *DB) *SenderRepository {
	return &SenderRepository{db: db}
}

// LoadSenders returns the directory keyed by normalized address.
func (r *SenderRepository) LoadSenders(ctx context.Context) (sender.Directory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT email, name, importance, role, pinned, notes, last_seen_at
		FROM senders
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load senders: %w", err)
	}
	defer rows.Close()

	dir := sender.Directory{}
	for rows.Next() {
		var p sender.Profile
		var lastSeen sql.NullString
		if err := rows.Scan(&p.Email, &p.Name, &p.Importance, &p.Role, &p.Pinned, &p.Notes, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan sender: %w", err)
		}
		if p.LastSeenAt, err = parseNullTime(lastSeen); err != nil {
			return nil, corrupt("sender "+p.Email+" last_seen_at", err)
		}
		dir[p.Email] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sender rows: %w", err)
	}
	return dir, nil
}

// SaveSenders replaces the stored directory.
func (r *SenderRepository) SaveSenders(ctx context.Context, dir sender.Directory) error {
	return r.db.inTx(ctx, func(tx *sql.Tx) error {
		return saveSenders(ctx, tx, dir)
	})
}

func saveSenders(ctx context.Context, q queryer, dir sender.Directory) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM senders`); err != nil {
		return fmt.Errorf("failed to clear senders: %w", err)
	}
	for key, p := range dir {
		_, err := q.ExecContext(ctx, `
			INSERT INTO senders (email, name, importance, role, pinned, notes, last_seen_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			sender.NormalizeAddress(key),
			p.Name,
			p.Importance,
			p.Role,
			p.Pinned,
			p.Notes,
			formatNullTime(p.LastSeenAt),
		)
		if err != nil {
			if isUniqueViolation(err) || isCheckViolation(err) {
				return fmt.Errorf("%w: sender %s: %v", repository.ErrInvalidInput, key, err)
			}
			return fmt.Errorf("failed to save sender %s: %w", key, err)
		}
	}
	return nil
}
