package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/inboxtriage/internal/repository"
)

// DefaultInstructions seeds the preference text on first use.
const DefaultInstructions = `Email triage instructions
=========================

- Prioritize email from pinned or high-importance senders.
- Students, collaborators and family are generally high priority.
- Bulk notifications, newsletters and automated alerts are low priority
  unless they mention a deadline or an urgent action.
- For each important email, create or update a task that states clearly
  what I need to do and by when.
- Summaries should be short but always say who is writing, what they want,
  any deadline, and whether I owe a reply.
- Don't suggest replies to spam or purely informational email.
`

// InstructionService reads and refines the stored preference text.
type InstructionService struct {
	repo    repository.InstructionRepository
	refiner *Refiner
	logger  *slog.Logger
}

// NewInstructionService creates an InstructionService. refiner may be nil
// when only reading is needed.
func NewInstructionService(repo repository.InstructionRepository, refiner *Refiner, logger *slog.Logger) *InstructionService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &InstructionService{repo: repo, refiner: refiner, logger: logger}
}

// Current returns the stored text, or DefaultInstructions when nothing is
// stored. It never writes.
func (s *InstructionService) Current(ctx context.Context) (string, error) {
	text, _, err := s.load(ctx)
	return text, err
}

func (s *InstructionService) load(ctx context.Context) (text string, stored bool, err error) {
	text, err = s.repo.LoadInstructions(ctx)
	if err != nil {
		return "", false, fmt.Errorf("%w: loading instructions: %w", ErrStoreIO, err)
	}
	if strings.TrimSpace(text) == "" {
		return DefaultInstructions, false, nil
	}
	return text, true, nil
}

// seed stores DefaultInstructions. Runs call it only after their commit.
func (s *InstructionService) seed(ctx context.Context) error {
	if err := s.repo.SaveInstructions(ctx, DefaultInstructions); err != nil {
		return fmt.Errorf("%w: seeding instructions: %w", ErrStoreIO, err)
	}
	s.logger.Info("seeded default instructions")
	return nil
}

// Refine revises the text from feedback and stores it. On any failure the
// stored text is left as it was.
func (s *InstructionService) Refine(ctx context.Context, feedback string) (string, error) {
	if s.refiner == nil {
		return "", fmt.Errorf("%w: no inference backend configured", ErrRetrieval)
	}
	current, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	revised, err := s.refiner.Refine(ctx, current, feedback)
	if err != nil {
		return "", err
	}
	if err := s.repo.SaveInstructions(ctx, revised); err != nil {
		return "", fmt.Errorf("%w: saving instructions: %w", ErrStoreIO, err)
	}
	return revised, nil
}
