package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/repository"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestTaskRepository_SaveLoad(t *testing.T) {
	repo := NewTaskRepository(NewTestDB(t))
	ctx := context.Background()

	tasks := []task.Task{
		task.New("task-0001", task.Patch{Description: ptr("Grade essays"), Tags: []string{"teaching"}, DueDate: ptr("2025-03-07")}, t0),
		task.New("task-0002", task.Patch{Description: ptr("Book flights"), Priority: ptr(8), OriginEmailID: ptr("m1")}, t0),
	}
	tasks[1].Close(t0.Add(time.Hour))
	require.NoError(t, repo.SaveTasks(ctx, tasks))

	got, err := repo.LoadTasks(ctx)
	require.NoError(t, err)
	require.Equal(t, tasks, got)

	// saving again replaces rather than duplicates
	require.NoError(t, repo.SaveTasks(ctx, tasks[:1]))
	got, err = repo.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestTaskRepository_InvalidRowRollsBack(t *testing.T) {
	repo := NewTaskRepository(NewTestDB(t))
	ctx := context.Background()

	good := task.New("task-0001", task.Patch{Description: ptr("keep me")}, t0)
	require.NoError(t, repo.SaveTasks(ctx, []task.Task{good}))

	bad := task.New("task-0002", task.Patch{Description: ptr("bad"), Priority: ptr(42)}, t0)
	err := repo.SaveTasks(ctx, []task.Task{good, bad})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	got, err := repo.LoadTasks(ctx)
	require.NoError(t, err)
	require.Equal(t, []task.Task{good}, got)
}

func TestSenderRepository_SaveLoad(t *testing.T) {
	repo := NewSenderRepository(NewTestDB(t))
	ctx := context.Background()

	dir := sender.Directory{}
	dir.Upsert(sender.Patch{Email: "vip@x.com", Importance: ptr(sender.ImportanceHigh), Pin: true})
	dir.Touch(sender.Sighting{Email: "news@x.com", Name: "News"}, t0)
	require.NoError(t, repo.SaveSenders(ctx, dir))

	got, err := repo.LoadSenders(ctx)
	require.NoError(t, err)
	require.Equal(t, dir, got)
}

func TestStateRepository(t *testing.T) {
	repo := NewStateRepository(NewTestDB(t))
	ctx := context.Background()

	st, err := repo.LoadState(ctx)
	require.NoError(t, err)
	require.Nil(t, st.LastRunAt)

	require.NoError(t, repo.SaveState(ctx, run.State{LastRunAt: &t0}))
	st, err = repo.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, st.LastRunAt.Equal(t0))

	text, err := repo.LoadInstructions(ctx)
	require.NoError(t, err)
	require.Empty(t, text)

	require.NoError(t, repo.SaveInstructions(ctx, "one"))
	require.NoError(t, repo.SaveInstructions(ctx, "two"))
	text, err = repo.LoadInstructions(ctx)
	require.NoError(t, err)
	require.Equal(t, "two", text)
}

func TestHistoryRepository(t *testing.T) {
	repo := NewHistoryRepository(NewTestDB(t))
	ctx := context.Background()

	e1 := &history.Entry{RunID: "r1", Mode: run.ModeNormal, Outcome: run.OutcomeSuccess, Since: t0, Until: t0.Add(time.Hour), StartedAt: t0, FinishedAt: t0}
	e2 := &history.Entry{RunID: "r2", Mode: run.ModeBackfill, Outcome: run.OutcomeFailed, Reason: "boom", Since: t0, Until: t0, StartedAt: t0, FinishedAt: t0}
	require.NoError(t, repo.AppendHistory(ctx, e1))
	require.NoError(t, repo.AppendHistory(ctx, e2))
	require.NotZero(t, e2.ID)

	entries, err := repo.ListHistory(ctx, history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, *e2, entries[0])

	mode := run.ModeNormal
	entries, err = repo.ListHistory(ctx, history.ListOptions{Mode: &mode})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "r1", entries[0].RunID)

	err = repo.AppendHistory(ctx, &history.Entry{RunID: "r1", Mode: run.ModeNormal, Outcome: run.OutcomeSuccess})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestStore_CommitIsAtomic(t *testing.T) {
	s := NewStore(NewTestDB(t), nil)
	ctx := context.Background()

	before := []task.Task{task.New("task-0001", task.Patch{Description: ptr("keep")}, t0)}
	require.NoError(t, s.SaveTasks(ctx, before))

	dir := sender.Directory{}
	dir.Upsert(sender.Patch{Email: "a@x.com"})
	// invalid importance forces the sender insert to fail after tasks were written
	broken := dir["a@x.com"]
	broken.Importance = "extreme"
	dir["a@x.com"] = broken

	next := t0.Add(time.Hour)
	err := s.Commit(ctx, repository.Batch{
		Tasks:   append(before, task.New("task-0002", task.Patch{Description: ptr("new")}, t0)),
		Senders: dir,
		State:   &run.State{LastRunAt: &next},
	})
	require.Error(t, err)

	got, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	require.Equal(t, before, got)

	st, err := s.LoadState(ctx)
	require.NoError(t, err)
	require.Nil(t, st.LastRunAt)
}

func TestStore_Commit(t *testing.T) {
	s := NewStore(NewTestDB(t), nil)
	ctx := context.Background()

	dir := sender.Directory{}
	dir.Touch(sender.Sighting{Email: "a@x.com"}, t0)
	tasks := []task.Task{task.New("task-0001", task.Patch{Description: ptr("one")}, t0)}

	require.NoError(t, s.Commit(ctx, repository.Batch{Tasks: tasks, Senders: dir, State: &run.State{LastRunAt: &t0}}))

	gotTasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	require.Equal(t, tasks, gotTasks)

	gotDir, err := s.LoadSenders(ctx)
	require.NoError(t, err)
	require.Equal(t, dir, gotDir)

	st, err := s.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, st.LastRunAt.Equal(t0))
}
