package reconcile_test

import (
	"testing"
	"time"

	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/reconcile"
	"github.com/stretchr/testify/require"
)

var (
	created = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	runAt   = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
)

func ptr[T any](v T) *T { return &v }

func baseSnapshot() reconcile.Snapshot {
	return reconcile.Snapshot{
		Tasks: []task.Task{
			{ID: "task-0001", Description: "Grade midterms", Status: task.StatusOpen, Priority: 5, Source: task.SourceEmail, CreatedAt: created, UpdatedAt: created},
			{ID: "task-0002", Description: "Book flights", Status: task.StatusInProgress, Priority: 3, Source: task.SourceManual, Tags: []string{"travel"}, CreatedAt: created, UpdatedAt: created},
		},
		Senders: sender.Directory{
			"vip@x.com": {Email: "vip@x.com", Name: "VIP", Importance: sender.ImportanceHigh, Role: sender.RoleCollaborator, Pinned: true},
		},
	}
}

func TestApply_UpdateThenClose(t *testing.T) {
	ops := []reconcile.Operation{
		reconcile.UpdateTask("task-0001", task.Patch{Priority: ptr(9)}),
		reconcile.CloseTask("task-0001"),
	}

	out, report := reconcile.Apply(baseSnapshot(), ops, reconcile.Options{RunAt: runAt})
	require.Equal(t, 2, report.Applied)
	require.Empty(t, report.Skipped)

	got := out.Tasks[0]
	require.Equal(t, task.StatusDone, got.Status)
	require.Equal(t, 9, got.Priority)
	require.Equal(t, runAt, got.UpdatedAt)
	require.Equal(t, created, got.CreatedAt)
}

func TestApply_CloseAlwaysDone(t *testing.T) {
	for _, status := range []task.Status{task.StatusOpen, task.StatusInProgress, task.StatusSnoozed, task.StatusDone} {
		snap := baseSnapshot()
		snap.Tasks[1].Status = status
		out, _ := reconcile.Apply(snap, []reconcile.Operation{reconcile.CloseTask("task-0002")}, reconcile.Options{RunAt: runAt})
		require.Equal(t, task.StatusDone, out.Tasks[1].Status, "from %s", status)
	}
}

func TestApply_CreateAssignsSequentialIDs(t *testing.T) {
	ops := []reconcile.Operation{
		reconcile.CreateTask(task.Patch{Description: ptr("Reply to Dana")}),
		reconcile.CreateTask(task.Patch{Description: ptr("Review PR"), Priority: ptr(8)}),
	}

	out, report := reconcile.Apply(baseSnapshot(), ops, reconcile.Options{RunAt: runAt})
	require.Equal(t, []string{"task-0003", "task-0004"}, report.CreatedTaskIDs)
	require.Len(t, out.Tasks, 4)

	first := out.Tasks[2]
	require.Equal(t, "task-0003", first.ID)
	require.Equal(t, task.DefaultPriority, first.Priority)
	require.Equal(t, task.StatusOpen, first.Status)
	require.Equal(t, runAt, first.CreatedAt)
	require.Equal(t, 8, out.Tasks[3].Priority)
}

func TestApply_CreateNeverReusesIDs(t *testing.T) {
	snap := reconcile.Snapshot{Tasks: []task.Task{{ID: "task-0009", Description: "old", Status: task.StatusDone, Priority: 5}}}
	_, report := reconcile.Apply(snap, []reconcile.Operation{reconcile.CreateTask(task.Patch{Description: ptr("new")})}, reconcile.Options{RunAt: runAt})
	require.Equal(t, []string{"task-0010"}, report.CreatedTaskIDs)
}

func TestApply_StaleReferenceSkipped(t *testing.T) {
	ops := []reconcile.Operation{
		reconcile.UpdateTask("task-0099", task.Patch{Priority: ptr(2)}),
		reconcile.CloseTask("task-0098"),
		reconcile.CloseTask("task-0002"),
	}

	out, report := reconcile.Apply(baseSnapshot(), ops, reconcile.Options{RunAt: runAt})
	require.Equal(t, 1, report.Applied)
	require.Len(t, report.Skipped, 2)
	require.Equal(t, 2, report.StaleReferences())
	require.Equal(t, reconcile.Skip{Index: 0, Kind: reconcile.KindUpdateTask, Ref: "task-0099", Reason: reconcile.SkipStaleReference}, report.Skipped[0])
	require.Equal(t, 1, report.Skipped[1].Index)
	require.Equal(t, task.StatusDone, out.Tasks[1].Status)
}

func TestApply_InvalidOperationsSkipped(t *testing.T) {
	ops := []reconcile.Operation{
		reconcile.CreateTask(task.Patch{}),
		reconcile.UpdateTask("task-0001", task.Patch{Priority: ptr(0)}),
		reconcile.UpdateTask("task-0001", task.Patch{}),
		reconcile.UpsertSender(sender.Patch{Email: "nope"}),
		{Kind: reconcile.Kind("delete-task"), TaskID: "task-0001"},
	}

	out, report := reconcile.Apply(baseSnapshot(), ops, reconcile.Options{RunAt: runAt})
	require.Zero(t, report.Applied)
	require.Len(t, report.Skipped, 5)
	for _, s := range report.Skipped {
		require.Equal(t, reconcile.SkipInvalid, s.Reason)
	}
	require.Equal(t, baseSnapshot(), out)
}

func TestApply_UnreferencedTasksUnchanged(t *testing.T) {
	before := baseSnapshot()
	ops := []reconcile.Operation{
		reconcile.UpdateTask("task-0001", task.Patch{Description: ptr("Grade finals"), DueDate: ptr("2026-04-02")}),
		reconcile.CreateTask(task.Patch{Description: ptr("x")}),
	}

	out, _ := reconcile.Apply(before, ops, reconcile.Options{RunAt: runAt})
	require.Equal(t, before.Tasks[1], out.Tasks[1])
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	before := baseSnapshot()
	pristine := baseSnapshot()
	ops := []reconcile.Operation{
		reconcile.UpdateTask("task-0002", task.Patch{Tags: []string{"work"}}),
		reconcile.UpsertSender(sender.Patch{Email: "vip@x.com", Unpin: true}),
	}

	reconcile.Apply(before, ops, reconcile.Options{RunAt: runAt})
	require.Equal(t, pristine, before)
}

func TestApply_UpsertNewSenderDefaults(t *testing.T) {
	ops := []reconcile.Operation{
		reconcile.UpsertSender(sender.Patch{Email: "alice@x.com", Importance: ptr(sender.ImportanceHigh)}),
	}

	out, report := reconcile.Apply(reconcile.Snapshot{}, ops, reconcile.Options{RunAt: runAt})
	require.Equal(t, []string{"alice@x.com"}, report.NewSenders)

	p := out.Senders["alice@x.com"]
	require.Equal(t, sender.ImportanceHigh, p.Importance)
	require.Equal(t, sender.RoleOther, p.Role)
	require.False(t, p.Pinned)
}

func TestApply_UpsertMergesFieldwise(t *testing.T) {
	ops := []reconcile.Operation{
		reconcile.UpsertSender(sender.Patch{Email: " VIP@X.com", Notes: ptr("co-PI on grant")}),
	}

	out, _ := reconcile.Apply(baseSnapshot(), ops, reconcile.Options{RunAt: runAt})
	p := out.Senders["vip@x.com"]
	require.Equal(t, "VIP", p.Name)
	require.Equal(t, sender.ImportanceHigh, p.Importance)
	require.Equal(t, sender.RoleCollaborator, p.Role)
	require.Equal(t, "co-PI on grant", p.Notes)
	require.True(t, p.Pinned)
}

func TestApply_PinnedNeverDropsWithoutUnpin(t *testing.T) {
	ops := []reconcile.Operation{
		reconcile.UpsertSender(sender.Patch{Email: "vip@x.com", Importance: ptr(sender.ImportanceLow)}),
	}

	out, _ := reconcile.Apply(baseSnapshot(), ops, reconcile.Options{RunAt: runAt})
	require.True(t, out.Senders["vip@x.com"].Pinned)

	out, _ = reconcile.Apply(out, []reconcile.Operation{
		reconcile.UpsertSender(sender.Patch{Email: "vip@x.com", Unpin: true}),
	}, reconcile.Options{RunAt: runAt})
	require.False(t, out.Senders["vip@x.com"].Pinned)
}

func TestApply_SendersAfterTasks(t *testing.T) {
	ops := []reconcile.Operation{
		reconcile.UpsertSender(sender.Patch{Email: "a@x.com"}),
		reconcile.CloseTask("task-0404"),
	}

	_, report := reconcile.Apply(baseSnapshot(), ops, reconcile.Options{RunAt: runAt})
	require.Equal(t, 1, report.Applied)
	require.Len(t, report.Skipped, 1)
	require.Equal(t, 1, report.Skipped[0].Index)
}

func TestApply_SeenAdvancesLastSeen(t *testing.T) {
	earlier := runAt.Add(-48 * time.Hour)
	snap := baseSnapshot()
	vip := snap.Senders["vip@x.com"]
	vip.LastSeenAt = &earlier
	snap.Senders["vip@x.com"] = vip

	out, report := reconcile.Apply(snap, nil, reconcile.Options{
		RunAt: runAt,
		Seen: []sender.Sighting{
			{Email: "VIP@x.com"},
			{Email: "newbie@y.org", Name: "New Bie"},
			{Email: "garbage"},
		},
	})

	require.Equal(t, runAt, *out.Senders["vip@x.com"].LastSeenAt)
	require.True(t, out.Senders["vip@x.com"].Pinned)
	require.Equal(t, "New Bie", out.Senders["newbie@y.org"].Name)
	require.Equal(t, runAt, *out.Senders["newbie@y.org"].LastSeenAt)
	require.Equal(t, []string{"newbie@y.org"}, report.NewSenders)
	require.Len(t, out.Senders, 2)
	require.Zero(t, report.Applied)
}

func TestApply_DuplicateCreateFromSameMessage(t *testing.T) {
	ops := []reconcile.Operation{
		reconcile.CreateTask(task.Patch{Description: ptr("Send slides"), OriginEmailID: ptr("m1")}),
		reconcile.CreateTask(task.Patch{Description: ptr("Book room"), OriginEmailID: ptr("m1")}),
	}

	out, report := reconcile.Apply(baseSnapshot(), ops, reconcile.Options{RunAt: runAt})
	require.Len(t, report.CreatedTaskIDs, 2)

	again, report2 := reconcile.Apply(out, ops, reconcile.Options{RunAt: runAt})
	require.Equal(t, out, again)
	require.Len(t, report2.Skipped, 2)
	require.Equal(t, reconcile.SkipDuplicate, report2.Skipped[0].Reason)
}

func TestApply_Idempotent(t *testing.T) {
	ops := []reconcile.Operation{
		reconcile.UpdateTask("task-0001", task.Patch{Priority: ptr(9), Tags: []string{"teaching"}}),
		reconcile.CloseTask("task-0002"),
		reconcile.UpdateTask("task-0077", task.Patch{Priority: ptr(1)}),
		reconcile.CreateTask(task.Patch{Description: ptr("Reply to Eve"), OriginEmailID: ptr("m9")}),
		reconcile.UpsertSender(sender.Patch{Email: "eve@z.net", Role: ptr(sender.RoleStudent), Pin: true}),
		reconcile.UpsertSender(sender.Patch{Email: "vip@x.com", Importance: ptr(sender.ImportanceNormal)}),
	}
	opts := reconcile.Options{RunAt: runAt, Seen: []sender.Sighting{{Email: "eve@z.net", Name: "Eve"}}}

	once, _ := reconcile.Apply(baseSnapshot(), ops, opts)
	twice, _ := reconcile.Apply(once, ops, opts)
	require.Equal(t, once, twice)
}
