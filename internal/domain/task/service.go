package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Service handles manual task commands. It uses the same Patch semantics as
// reconciliation so hand edits and inferred edits behave identically.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new task service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddRequest describes a manual task creation.
type AddRequest struct {
	Description string
	Priority    *int
	DueDate     string
	Source      string
	Tags        []string
}

// List returns tasks in display order.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Task, error) {
	tasks, err := s.repo.LoadTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	filtered := make([]Task, 0, len(tasks))
	for _, t := range Prioritized(tasks) {
		if opts.Status != nil {
			if t.Status != *opts.Status {
				continue
			}
		} else if !opts.IncludeDone && !t.IsOpen() {
			continue
		}
		filtered = append(filtered, t)
		if opts.Limit > 0 && len(filtered) >= opts.Limit {
			break
		}
	}
	return filtered, nil
}

// Get returns a single task.
func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	tasks, err := s.repo.LoadTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	idx := Find(tasks, strings.TrimSpace(id))
	if idx < 0 {
		return nil, ErrTaskNotFound
	}
	t := tasks[idx]
	return &t, nil
}

// Add creates a task with the next sequential ID.
func (s *Service) Add(ctx context.Context, req AddRequest) (*Task, error) {
	desc := strings.TrimSpace(req.Description)
	source := SourceManual
	if req.Source != "" {
		source = ParseSource(req.Source)
	}
	patch := Patch{
		Description: &desc,
		Priority:    req.Priority,
		Source:      &source,
		Tags:        req.Tags,
	}
	if req.DueDate != "" {
		due := req.DueDate
		patch.DueDate = &due
	}
	if err := ValidateCreate(patch); err != nil {
		return nil, err
	}

	tasks, err := s.repo.LoadTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	t := New(NextID(tasks), patch, s.now())
	tasks = append(tasks, t)
	if err := s.repo.SaveTasks(ctx, tasks); err != nil {
		return nil, fmt.Errorf("saving tasks: %w", err)
	}

	s.logger.Info("task added", "id", t.ID, "priority", t.Priority)
	return &t, nil
}

// Complete marks a task done.
func (s *Service) Complete(ctx context.Context, id string) (*Task, error) {
	tasks, err := s.repo.LoadTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}

	idx := Find(tasks, strings.TrimSpace(id))
	if idx < 0 {
		return nil, ErrTaskNotFound
	}
	tasks[idx].Close(s.now())

	if err := s.repo.SaveTasks(ctx, tasks); err != nil {
		return nil, fmt.Errorf("saving tasks: %w", err)
	}

	s.logger.Info("task completed", "id", tasks[idx].ID)
	t := tasks[idx]
	return &t, nil
}
