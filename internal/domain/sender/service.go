package sender

import (
	"context"
	"fmt"
	"log/slog"
)

// Service handles manual sender directory commands.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new sender service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// List returns all profiles, pinned and important senders first.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	dir, err := s.repo.LoadSenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading senders: %w", err)
	}
	return dir.Sorted(), nil
}

// Get returns the profile for an address.
func (s *Service) Get(ctx context.Context, email string) (*Profile, error) {
	dir, err := s.repo.LoadSenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading senders: %w", err)
	}
	p, ok := dir[NormalizeAddress(email)]
	if !ok {
		return nil, ErrSenderNotFound
	}
	return &p, nil
}

// Set upserts a profile from a manual command.
func (s *Service) Set(ctx context.Context, patch Patch) (*Profile, error) {
	if err := ValidatePatch(patch); err != nil {
		return nil, err
	}

	dir, err := s.repo.LoadSenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading senders: %w", err)
	}
	if dir == nil {
		dir = Directory{}
	}

	p, created := dir.Upsert(patch)
	if err := s.repo.SaveSenders(ctx, dir); err != nil {
		return nil, fmt.Errorf("saving senders: %w", err)
	}

	s.logger.Info("sender updated", "email", p.Email, "created", created, "pinned", p.Pinned)
	return &p, nil
}
