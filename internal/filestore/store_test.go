package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/repository"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestStore_EmptyDirectory(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	tasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	require.Empty(t, tasks)

	dir, err := s.LoadSenders(ctx)
	require.NoError(t, err)
	require.Empty(t, dir)

	st, err := s.LoadState(ctx)
	require.NoError(t, err)
	require.Nil(t, st.LastRunAt)

	text, err := s.LoadInstructions(ctx)
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestStore_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	desc := "Reply to Alice"
	tasks := []task.Task{task.New("task-0001", task.Patch{Description: &desc, Tags: []string{"reply"}}, now)}
	require.NoError(t, s.SaveTasks(ctx, tasks))

	got, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	require.Equal(t, tasks, got)

	dir := sender.Directory{}
	dir.Touch(sender.Sighting{Email: "Alice@X.com", Name: "Alice"}, now)
	require.NoError(t, s.SaveSenders(ctx, dir))

	gotDir, err := s.LoadSenders(ctx)
	require.NoError(t, err)
	require.Equal(t, "Alice", gotDir["alice@x.com"].Name)
	require.True(t, gotDir["alice@x.com"].LastSeenAt.Equal(now))

	require.NoError(t, s.SaveInstructions(ctx, "be brief"))
	text, err := s.LoadInstructions(ctx)
	require.NoError(t, err)
	require.Equal(t, "be brief", text)
}

func TestStore_CorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), TasksFile), []byte("{not json"), 0o644))

	_, err := s.LoadTasks(context.Background())
	require.ErrorIs(t, err, repository.ErrCorrupt)
}

func TestStore_CommitWithoutStateLeavesStateAlone(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	last := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveState(ctx, run.State{LastRunAt: &last}))

	require.NoError(t, s.Commit(ctx, repository.Batch{Tasks: []task.Task{}, Senders: sender.Directory{}}))

	st, err := s.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, st.LastRunAt.Equal(last))

	next := last.Add(time.Hour)
	require.NoError(t, s.Commit(ctx, repository.Batch{State: &run.State{LastRunAt: &next}}))
	st, err = s.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, st.LastRunAt.Equal(next))
}

func TestStore_CommitLeavesNoTempFiles(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Commit(context.Background(), repository.Batch{}))

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{TasksFile, SendersFile}, names)
}

func TestStore_CommitCancelled(t *testing.T) {
	s := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Commit(ctx, repository.Batch{}), context.Canceled)
	_, err := os.Stat(filepath.Join(s.Dir(), TasksFile))
	require.True(t, os.IsNotExist(err))
}

func TestStore_History(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for _, o := range []run.Outcome{run.OutcomeSuccess, run.OutcomeFailed, run.OutcomePartial} {
		require.NoError(t, s.AppendHistory(ctx, &history.Entry{RunID: string(o), Mode: run.ModeNormal, Outcome: o}))
	}

	all, err := s.ListHistory(ctx, history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "partial", all[0].RunID)
	require.Equal(t, int64(3), all[0].ID)

	failed := run.OutcomeFailed
	only, err := s.ListHistory(ctx, history.ListOptions{Outcome: &failed})
	require.NoError(t, err)
	require.Len(t, only, 1)

	limited, err := s.ListHistory(ctx, history.ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
}
