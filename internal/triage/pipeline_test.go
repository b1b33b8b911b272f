package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/filestore"
	"github.com/rpggio/inboxtriage/internal/inference/inferencetest"
	"github.com/rpggio/inboxtriage/internal/mail"
	"github.com/rpggio/inboxtriage/internal/mail/mailtest"
	"github.com/rpggio/inboxtriage/internal/reconcile"
	"github.com/rpggio/inboxtriage/internal/repository"
	"github.com/rpggio/inboxtriage/internal/repository/mocks"
)

var runAt = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func message(id, from, name string, age time.Duration) mail.Message {
	return mail.Message{
		Summary: mail.Summary{
			ID:         id,
			ThreadID:   "t-" + id,
			SenderName: name,
			SenderAddr: from,
			ReceivedAt: runAt.Add(-age),
			Subject:    "subject " + id,
			Snippet:    "snippet " + id,
		},
		Body: "body of " + id,
	}
}

type fixture struct {
	store  *filestore.Store
	source *mailtest.Source
	ai     *inferencetest.Scripted
	p      *Pipeline
}

func newFixture(t *testing.T, replies ...string) *fixture {
	t.Helper()
	store, err := filestore.New(t.TempDir(), nil)
	require.NoError(t, err)

	f := &fixture{
		store: store,
		source: mailtest.New(
			message("m1", "Alice@Uni.edu", "Alice Jones", 2*time.Hour),
			message("m2", "bob@lists.example.com", "Bob", 3*time.Hour),
		),
		ai: inferencetest.New(replies...),
	}
	f.p = NewPipeline(store, f.source, f.ai, Options{}, nil).WithClock(func() time.Time { return runAt })
	return f
}

func (f *fixture) seedTask(t *testing.T, tasks ...task.Task) {
	t.Helper()
	require.NoError(t, f.store.SaveTasks(context.Background(), tasks))
}

func existingTask() task.Task {
	created := runAt.Add(-48 * time.Hour)
	return task.Task{
		ID: "task-0001", Description: "Review thesis draft", Status: task.StatusOpen,
		Priority: 5, Source: task.SourceEmail, CreatedAt: created, UpdatedAt: created,
	}
}

const pass1Reply = `{"emails_to_expand":["m1","zzz","m1"],"task_ops":[{"op":"add","task":{"description":"Preliminary grading task"}}]}`

const pass2Reply = `{
  "final_task_ops": [
    {"op":"add","task":{"description":"Send grades to Alice","priority":"8","due_date":"2025-03-12T00:00:00Z","origin_email_id":"m1","email_thread_id":"t-m1"}},
    {"operation":"UPDATE","task":{"id":"task-0001","priority":9}},
    {"op":"close","task_id":"task-0099"}
  ],
  "updated_senders": [{"email":"Alice@Uni.edu","importance":"high","role":"student"}],
  "daily_summary": {
    "critical_emails": [{"email_id":"m1","summary":"Alice needs grades","linked_task_ids":"task-0002"}],
    "suggested_responses": [{"email_id":"m1","draft_outline":["Thank her","Confirm the date"]}]
  }
}`

func TestPipeline_NormalRun(t *testing.T) {
	f := newFixture(t, pass1Reply, pass2Reply)
	f.seedTask(t, existingTask())
	ctx := context.Background()

	res := f.p.Run(ctx, RunRequest{})

	require.Equal(t, run.OutcomePartial, res.Outcome)
	require.ErrorIs(t, res.Err, ErrStaleReference)
	require.Equal(t, run.ModeNormal, res.Window.Mode)
	require.True(t, res.Window.Since.Equal(runAt.Add(-run.BootstrapLookback)))
	require.Equal(t, 2, res.Messages)
	require.Equal(t, []string{"m1"}, res.Expanded)
	require.Equal(t, 3, res.Report.Applied)
	require.Len(t, res.Report.Skipped, 1)
	require.Equal(t, reconcile.SkipStaleReference, res.Report.Skipped[0].Reason)
	require.Equal(t, []string{"task-0002"}, res.Report.CreatedTaskIDs)
	require.Equal(t, "2025-03-10", res.Summary.SummaryDate)
	require.Len(t, res.Summary.CriticalEmails, 1)
	require.NotEmpty(t, res.Warnings)

	// only the selected body was fetched and shown to the second pass
	require.Equal(t, []string{"m1"}, f.source.Fetched)
	require.Equal(t, 2, f.ai.Calls())
	require.Contains(t, f.ai.Requests[1].User, "body of m1")
	require.NotContains(t, f.ai.Requests[1].User, "body of m2")
	require.Contains(t, f.ai.Requests[1].User, "Preliminary grading task")

	tasks, err := f.store.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	require.Equal(t, 9, tasks[0].Priority)
	require.True(t, tasks[0].UpdatedAt.Equal(runAt))
	require.Equal(t, "task-0002", tasks[1].ID)
	require.Equal(t, 8, tasks[1].Priority)
	require.Equal(t, "2025-03-12", tasks[1].DueDate)
	require.Equal(t, "m1", tasks[1].OriginEmailID)
	require.Len(t, res.OpenTasks, 2)
	require.Equal(t, "task-0001", res.OpenTasks[0].ID)

	senders, err := f.store.LoadSenders(ctx)
	require.NoError(t, err)
	alice := senders["alice@uni.edu"]
	require.Equal(t, sender.ImportanceHigh, alice.Importance)
	require.Equal(t, sender.RoleStudent, alice.Role)
	require.Equal(t, "Alice Jones", alice.Name)
	require.NotNil(t, alice.LastSeenAt)
	bob := senders["bob@lists.example.com"]
	require.Equal(t, sender.ImportanceNormal, bob.Importance)
	require.True(t, bob.LastSeenAt.Equal(runAt))

	state, err := f.store.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.LastRunAt)
	require.True(t, state.LastRunAt.Equal(runAt))

	text, err := f.store.LoadInstructions(ctx)
	require.NoError(t, err)
	require.Equal(t, DefaultInstructions, text)

	runs, err := f.store.ListHistory(ctx, history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, res.RunID, runs[0].RunID)
	require.Equal(t, run.OutcomePartial, runs[0].Outcome)
	require.Equal(t, 1, runs[0].Skipped)
}

func TestPipeline_SecondRunStartsAtLastRun(t *testing.T) {
	f := newFixture(t, `{"emails_to_expand":[]}`, `{"final_task_ops":[],"daily_summary":{}}`)
	last := runAt.Add(-150 * time.Minute)
	require.NoError(t, f.store.SaveState(context.Background(), run.State{LastRunAt: &last}))

	res := f.p.Run(context.Background(), RunRequest{Mode: run.ModeNormal})
	require.Equal(t, run.OutcomeSuccess, res.Outcome)
	require.True(t, res.Window.Since.Equal(last))
	require.Equal(t, 1, res.Messages)
	require.Len(t, f.source.Queries, 1)
	require.False(t, f.source.Queries[0].IncludeRead)
	require.True(t, f.source.Queries[0].Oldest)
	require.Equal(t, 51, f.source.Queries[0].Max)
}

func TestPipeline_CappedRunContinuesFromLastProcessed(t *testing.T) {
	quiet := `{"emails_to_expand":[],"task_ops":[]}`
	empty := `{"final_task_ops":[],"daily_summary":{}}`
	f := newFixture(t, quiet, empty, quiet, empty)
	f.source.Add(message("m3", "carol@x.com", "Carol", 4*time.Hour))
	f.p = NewPipeline(f.store, f.source, f.ai, Options{MaxMessages: 2}, nil).WithClock(func() time.Time { return runAt })
	ctx := context.Background()

	first := f.p.Run(ctx, RunRequest{Mode: run.ModeNormal})
	require.Equal(t, run.OutcomeSuccess, first.Outcome)
	require.Equal(t, 2, first.Messages)
	require.Contains(t, f.ai.Requests[0].User, "subject m3")
	require.Contains(t, f.ai.Requests[0].User, "subject m2")
	require.NotContains(t, f.ai.Requests[0].User, "subject m1")
	require.Contains(t, first.Warnings[len(first.Warnings)-1], "processed the oldest 2")

	state, err := f.store.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, state.LastRunAt.Equal(runAt.Add(-3*time.Hour)))
	require.True(t, first.Window.Until.Equal(runAt.Add(-3*time.Hour)))

	second := f.p.Run(ctx, RunRequest{Mode: run.ModeNormal})
	require.Equal(t, run.OutcomeSuccess, second.Outcome)
	require.Equal(t, 1, second.Messages)
	require.Contains(t, f.ai.Requests[2].User, "subject m1")
	require.Empty(t, second.Warnings)

	state, err = f.store.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, state.LastRunAt.Equal(runAt))
}

func TestPipeline_EmptyInboxSkipsInference(t *testing.T) {
	f := newFixture(t)
	f.source = mailtest.New()
	f.p = NewPipeline(f.store, f.source, f.ai, Options{}, nil).WithClock(func() time.Time { return runAt })
	ctx := context.Background()

	res := f.p.Run(ctx, RunRequest{Mode: run.ModeNormal})

	require.Equal(t, run.OutcomeSuccess, res.Outcome)
	require.NoError(t, res.Err)
	require.Zero(t, f.ai.Calls())
	require.NotEmpty(t, res.Summary.OtherNotes)

	state, err := f.store.LoadState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.LastRunAt)
	require.True(t, state.LastRunAt.Equal(runAt))
}

func TestPipeline_BackfillLeavesStateAlone(t *testing.T) {
	f := newFixture(t,
		`{"emails_to_expand":[],"task_ops":[]}`,
		`{"final_task_ops":[],"daily_summary":{"other_notes":"quiet"}}`,
	)
	f.source.Add(message("old", "carol@x.com", "Carol", 5*24*time.Hour))
	f.source.MarkRead("old")
	ctx := context.Background()

	res := f.p.Run(ctx, RunRequest{Mode: run.ModeBackfill, Days: 7})

	require.Equal(t, run.OutcomeSuccess, res.Outcome)
	require.Equal(t, 3, res.Messages)
	require.Len(t, f.source.Queries, 7)
	for _, q := range f.source.Queries {
		require.True(t, q.IncludeRead)
		require.False(t, q.Oldest)
	}
	require.True(t, f.source.Queries[0].Until.Equal(runAt))
	require.True(t, f.source.Queries[6].Since.Equal(runAt.Add(-7*24*time.Hour)))
	require.Empty(t, f.source.Fetched)

	state, err := f.store.LoadState(ctx)
	require.NoError(t, err)
	require.Nil(t, state.LastRunAt)

	senders, err := f.store.LoadSenders(ctx)
	require.NoError(t, err)
	require.Contains(t, senders, "carol@x.com")
}

func TestPipeline_BackfillCapsEachDay(t *testing.T) {
	f := newFixture(t,
		`{"emails_to_expand":[],"task_ops":[]}`,
		`{"final_task_ops":[],"daily_summary":{}}`,
	)
	f.source.Add(message("d2", "carol@x.com", "Carol", 30*time.Hour))
	f.source.Add(message("d3", "dan@x.com", "Dan", 50*time.Hour))
	f.source.Add(message("edge", "erin@x.com", "Erin", 24*time.Hour))
	f.p = NewPipeline(f.store, f.source, f.ai, Options{MaxMessages: 2}, nil).WithClock(func() time.Time { return runAt })

	res := f.p.Run(context.Background(), RunRequest{Mode: run.ModeBackfill, Days: 3})

	require.Equal(t, run.OutcomeSuccess, res.Outcome)
	require.Len(t, f.source.Queries, 3)
	// the newest day holds three messages, so its oldest is left out
	require.Equal(t, 4, res.Messages)
	for _, id := range []string{"m1", "m2", "d2", "d3"} {
		require.Contains(t, f.ai.Requests[0].User, "subject "+id)
	}
	require.Contains(t, res.Warnings[0], "message limit")
}

func TestPipeline_BackfillRequiresDays(t *testing.T) {
	f := newFixture(t)
	res := f.p.Run(context.Background(), RunRequest{Mode: run.ModeBackfill})
	require.True(t, res.Failed())
	require.ErrorIs(t, res.Err, run.ErrInvalidDays)
	require.Empty(t, f.source.Queries)
}

func TestPipeline_RerunDoesNotDuplicateTasks(t *testing.T) {
	create := `{"final_task_ops":[{"op":"add","task":{"description":"Send grades to Alice","origin_email_id":"m1"}}],"daily_summary":{}}`
	f := newFixture(t, `{"emails_to_expand":["m1"]}`, create, `{"emails_to_expand":["m1"]}`, create)
	ctx := context.Background()

	first := f.p.Run(ctx, RunRequest{Mode: run.ModeBackfill, Days: 1})
	require.Equal(t, run.OutcomeSuccess, first.Outcome)

	second := f.p.Run(ctx, RunRequest{Mode: run.ModeBackfill, Days: 1})
	require.Equal(t, run.OutcomePartial, second.Outcome)
	require.NoError(t, second.Err)
	require.Equal(t, reconcile.SkipDuplicate, second.Report.Skipped[0].Reason)

	tasks, err := f.store.LoadTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
}

func TestPipeline_MalformedPass2LeavesStoresUntouched(t *testing.T) {
	f := newFixture(t, pass1Reply, "Sorry, I can't help with that.")
	f.seedTask(t, existingTask())
	ctx := context.Background()

	res := f.p.Run(ctx, RunRequest{Mode: run.ModeNormal})

	require.True(t, res.Failed())
	require.ErrorIs(t, res.Err, ErrMalformedOutput)
	require.Len(t, res.Summary.CriticalEmails, 1)
	require.Equal(t, "(none)", res.Summary.CriticalEmails[0].EmailID)

	tasks, err := f.store.LoadTasks(ctx)
	require.NoError(t, err)
	require.Equal(t, []task.Task{existingTask()}, normalizeTimes(tasks))

	senders, err := f.store.LoadSenders(ctx)
	require.NoError(t, err)
	require.Empty(t, senders)

	state, err := f.store.LoadState(ctx)
	require.NoError(t, err)
	require.Nil(t, state.LastRunAt)

	text, err := f.store.LoadInstructions(ctx)
	require.NoError(t, err)
	require.Empty(t, text)

	runs, err := f.store.ListHistory(ctx, history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, run.OutcomeFailed, runs[0].Outcome)
	require.Contains(t, runs[0].Reason, "malformed")
}

func TestPipeline_DegradedPass1StillSucceeds(t *testing.T) {
	f := newFixture(t, "not json at all", `{"final_task_ops":[],"daily_summary":{}}`)

	res := f.p.Run(context.Background(), RunRequest{Mode: run.ModeNormal})

	require.Equal(t, run.OutcomeSuccess, res.Outcome)
	require.Empty(t, res.Expanded)
	require.Empty(t, f.source.Fetched)
	require.NotEmpty(t, res.Warnings)
}

func TestPipeline_ListFailure(t *testing.T) {
	f := newFixture(t)
	f.source.ListErr = errors.New("401 unauthorized")

	res := f.p.Run(context.Background(), RunRequest{Mode: run.ModeNormal})

	require.True(t, res.Failed())
	require.ErrorIs(t, res.Err, ErrRetrieval)
	require.Zero(t, f.ai.Calls())
}

func TestPipeline_BodyFetchFailure(t *testing.T) {
	f := newFixture(t, `{"emails_to_expand":["m1","m2"]}`)
	f.source.BodyErr["m2"] = errors.New("timeout")

	res := f.p.Run(context.Background(), RunRequest{Mode: run.ModeNormal})

	require.True(t, res.Failed())
	require.ErrorIs(t, res.Err, ErrRetrieval)
	require.Equal(t, 1, f.ai.Calls())
}

func TestPipeline_VanishedMessageIsSkipped(t *testing.T) {
	f := newFixture(t, `{"emails_to_expand":["m1","m2"]}`, `{"final_task_ops":[],"daily_summary":{}}`)
	f.source.BodyErr["m2"] = mail.ErrMessageNotFound

	res := f.p.Run(context.Background(), RunRequest{Mode: run.ModeNormal})

	require.Equal(t, run.OutcomeSuccess, res.Outcome)
	require.Contains(t, f.ai.Requests[1].User, "body of m1")
	require.Contains(t, res.Warnings, "1 selected messages could not be fetched")
}

func TestPipeline_InferenceTransportFailure(t *testing.T) {
	f := newFixture(t)
	f.ai.Then(inferencetest.Reply{Err: errors.New("503")})

	res := f.p.Run(context.Background(), RunRequest{Mode: run.ModeNormal})

	require.True(t, res.Failed())
	require.ErrorIs(t, res.Err, ErrRetrieval)
}

func TestPipeline_CommitFailure(t *testing.T) {
	store := new(mocks.Store)
	store.On("LoadState", mock.Anything).Return(run.State{}, nil)
	store.On("LoadTasks", mock.Anything).Return([]task.Task{}, nil)
	store.On("LoadSenders", mock.Anything).Return(sender.Directory{}, nil)
	store.On("LoadInstructions", mock.Anything).Return("prefs", nil)
	store.On("Commit", mock.Anything, mock.MatchedBy(func(b repository.Batch) bool {
		return b.State != nil && b.State.LastRunAt.Equal(runAt)
	})).Return(errors.New("disk full"))
	store.On("AppendHistory", mock.Anything, mock.MatchedBy(func(e *history.Entry) bool {
		return e.Outcome == run.OutcomeFailed
	})).Return(nil)

	p := NewPipeline(store, mailtest.New(), inferencetest.New(), Options{}, nil).WithClock(func() time.Time { return runAt })
	res := p.Run(context.Background(), RunRequest{Mode: run.ModeNormal})

	require.True(t, res.Failed())
	require.ErrorIs(t, res.Err, ErrStoreIO)
	store.AssertExpectations(t)
}

func TestPipeline_StateLoadFailure(t *testing.T) {
	store := new(mocks.Store)
	store.On("LoadState", mock.Anything).Return(run.State{}, repository.ErrCorrupt)
	store.On("AppendHistory", mock.Anything, mock.Anything).Return(errors.New("also broken"))

	p := NewPipeline(store, mailtest.New(), inferencetest.New(), Options{}, nil).WithClock(func() time.Time { return runAt })
	res := p.Run(context.Background(), RunRequest{Mode: run.ModeNormal})

	require.True(t, res.Failed())
	require.ErrorIs(t, res.Err, ErrStoreIO)
	require.ErrorIs(t, res.Err, repository.ErrCorrupt)
	store.AssertNotCalled(t, "Commit", mock.Anything, mock.Anything)
}

func TestPipeline_CancelledBeforeCommit(t *testing.T) {
	f := newFixture(t, `{"emails_to_expand":[]}`)
	ctx, cancel := context.WithCancel(context.Background())
	f.ai.Then(inferencetest.Reply{Text: `{"final_task_ops":[],"daily_summary":{}}`})

	// cancel once pass 2 has answered
	wrapped := &cancelAfter{Scripted: f.ai, n: 2, cancel: cancel}
	f.p = NewPipeline(f.store, f.source, wrapped, Options{}, nil).WithClock(func() time.Time { return runAt })

	res := f.p.Run(ctx, RunRequest{Mode: run.ModeNormal})
	require.True(t, res.Failed())

	state, err := f.store.LoadState(context.Background())
	require.NoError(t, err)
	require.Nil(t, state.LastRunAt)

	runs, err := f.store.ListHistory(context.Background(), history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
}

func normalizeTimes(tasks []task.Task) []task.Task {
	for i := range tasks {
		tasks[i].CreatedAt = tasks[i].CreatedAt.UTC()
		tasks[i].UpdatedAt = tasks[i].UpdatedAt.UTC()
	}
	return tasks
}
