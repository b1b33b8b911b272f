package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultLimit caps listings when no limit is given.
const DefaultLimit = 20

// Service handles run history operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new history service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Record stores an entry, filling the run ID and timestamps if missing.
func (s *Service) Record(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return ErrInvalidInput
	}
	if entry.RunID == "" {
		entry.RunID = uuid.NewString()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = time.Now().UTC()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = entry.FinishedAt
	}
	if err := s.repo.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	s.logger.Debug("run recorded", "run_id", entry.RunID, "outcome", entry.Outcome)
	return nil
}

// Recent lists the newest entries first.
func (s *Service) Recent(ctx context.Context, opts ListOptions) ([]Entry, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	return s.repo.ListHistory(ctx, opts)
}
