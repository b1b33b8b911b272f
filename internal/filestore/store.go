// Package filestore keeps the triage records as JSON files in one directory.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/repository"
)

// File names inside the data directory.
const (
	TasksFile        = "tasks.json"
	SendersFile      = "known_senders.json"
	StateFile        = "state.json"
	InstructionsFile = "instructions.txt"
	HistoryFile      = "history.json"
)

type tasksFile struct {
	Tasks []task.Task `json:"tasks"`
}

type sendersFile struct {
	Senders []sender.Profile `json:"senders"`
}

type historyFile struct {
	Runs []history.Entry `json:"runs"`
}

// Store implements repository.Store on top of JSON files.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

var _ repository.Store = (*Store)(nil)

// New opens (creating if needed) a store rooted at dir.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Close is a no-op; files are closed after every write.
func (s *Store) Close() error { return nil }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// readJSON decodes name into v. A missing file leaves v untouched.
func (s *Store) readJSON(name string, v any) error {
	b, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrCorrupt, name, err)
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return writeFileAtomic(s.path(name), append(b, '\n'))
}

func (s *Store) LoadTasks(_ context.Context) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadTasks()
}

func (s *Store) loadTasks() ([]task.Task, error) {
	var f tasksFile
	if err := s.readJSON(TasksFile, &f); err != nil {
		return nil, err
	}
	if f.Tasks == nil {
		f.Tasks = []task.Task{}
	}
	return f.Tasks, nil
}

func (s *Store) SaveTasks(_ context.Context, tasks []task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTasks(tasks)
}

func (s *Store) saveTasks(tasks []task.Task) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	return s.writeJSON(TasksFile, tasksFile{Tasks: tasks})
}

func (s *Store) LoadSenders(_ context.Context) (sender.Directory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSenders()
}

func (s *Store) loadSenders() (sender.Directory, error) {
	var f sendersFile
	if err := s.readJSON(SendersFile, &f); err != nil {
		return nil, err
	}
	dir := make(sender.Directory, len(f.Senders))
	for _, p := range f.Senders {
		key := sender.NormalizeAddress(p.Email)
		if key == "" {
			continue
		}
		p.Email = key
		dir[key] = p
	}
	return dir, nil
}

func (s *Store) SaveSenders(_ context.Context, dir sender.Directory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSenders(dir)
}

func (s *Store) saveSenders(dir sender.Directory) error {
	list := make([]sender.Profile, 0, len(dir))
	for _, p := range dir {
		list = append(list, p)
	}
	// stable file order keeps diffs readable
	sort.Slice(list, func(i, j int) bool { return list[i].Email < list[j].Email })
	return s.writeJSON(SendersFile, sendersFile{Senders: list})
}

func (s *Store) LoadState(_ context.Context) (run.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st run.State
	if err := s.readJSON(StateFile, &st); err != nil {
		return run.State{}, err
	}
	return st, nil
}

func (s *Store) SaveState(_ context.Context, st run.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(StateFile, st)
}

func (s *Store) LoadInstructions(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path(InstructionsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", InstructionsFile, err)
	}
	return string(b), nil
}

func (s *Store) SaveInstructions(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path(InstructionsFile), []byte(text))
}

func (s *Store) AppendHistory(_ context.Context, entry *history.Entry) error {
	if entry == nil {
		return repository.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var f historyFile
	if err := s.readJSON(HistoryFile, &f); err != nil {
		return err
	}
	var maxID int64
	for _, e := range f.Runs {
		maxID = max(maxID, e.ID)
	}
	entry.ID = maxID + 1
	f.Runs = append(f.Runs, *entry)
	return s.writeJSON(HistoryFile, f)
}

func (s *Store) ListHistory(_ context.Context, opts history.ListOptions) ([]history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f historyFile
	if err := s.readJSON(HistoryFile, &f); err != nil {
		return nil, err
	}
	out := make([]history.Entry, 0, len(f.Runs))
	for i := len(f.Runs) - 1; i >= 0; i-- {
		e := f.Runs[i]
		if opts.Mode != nil && e.Mode != *opts.Mode {
			continue
		}
		if opts.Outcome != nil && e.Outcome != *opts.Outcome {
			continue
		}
		out = append(out, e)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

// Commit writes tasks, then senders, then state. Each file is replaced
// atomically; state goes last so a crash mid-commit leaves the window
// unadvanced and the next run re-reads the same messages.
func (s *Store) Commit(ctx context.Context, b repository.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveTasks(b.Tasks); err != nil {
		return fmt.Errorf("committing tasks: %w", err)
	}
	if err := s.saveSenders(b.Senders); err != nil {
		return fmt.Errorf("committing senders: %w", err)
	}
	if b.State != nil {
		if err := s.writeJSON(StateFile, *b.State); err != nil {
			return fmt.Errorf("committing state: %w", err)
		}
	}
	s.logger.Debug("batch committed", "tasks", len(b.Tasks), "senders", len(b.Senders), "state", b.State != nil)
	return nil
}
