package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/rpggio/inboxtriage/internal/repository"
)

// Store bundles the SQLite repositories into a repository.Store.
type Store struct {
	*TaskRepository
	*SenderRepository
	*StateRepository
	*HistoryRepository

	db     *DB
	logger *slog.Logger
}

var _ repository.Store = (*Store)(nil)

// Open opens the database at path and applies migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	db, err := New(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, logger); err != nil {
		db.Close()
		return nil, err
	}
	return NewStore(db, logger), nil
}

// NewStore wraps an already migrated database.
func NewStore(db *DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		TaskRepository:    NewTaskRepository(db),
		SenderRepository:  NewSenderRepository(db),
		StateRepository:   NewStateRepository(db),
		HistoryRepository: NewHistoryRepository(db),
		db:                db,
		logger:            logger,
	}
}

// Commit writes tasks, senders and optionally the run state in one transaction.
func (s *Store) Commit(ctx context.Context, b repository.Batch) error {
	err := s.db.inTx(ctx, func(tx *sql.Tx) error {
		if err := saveTasks(ctx, tx, b.Tasks); err != nil {
			return err
		}
		if err := saveSenders(ctx, tx, b.Senders); err != nil {
			return err
		}
		if b.State != nil {
			return saveState(ctx, tx, *b.State)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("batch committed", "tasks", len(b.Tasks), "senders", len(b.Senders), "state", b.State != nil)
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
