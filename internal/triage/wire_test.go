package triage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/reconcile"
)

func TestDecodeOp_Create(t *testing.T) {
	op, err := decodeOp(json.RawMessage(`{"op":"ADD","task":{"id":"task-9999","description":" Grade essays ","priority":"8","due_date":"2025-03-12T00:00:00Z","tags":"teaching","origin_email_id":"m1","status":"Open"}}`))
	require.NoError(t, err)
	require.Equal(t, reconcile.KindCreateTask, op.Kind)
	require.Empty(t, op.TaskID)
	require.Equal(t, "Grade essays", *op.Task.Description)
	require.Equal(t, 8, *op.Task.Priority)
	require.Equal(t, "2025-03-12", *op.Task.DueDate)
	require.Equal(t, []string{"teaching"}, op.Task.Tags)
	require.Equal(t, "m1", *op.Task.OriginEmailID)
	require.Equal(t, task.StatusOpen, *op.Task.Status)
}

func TestDecodeOp_UpdateFromEmbeddedTask(t *testing.T) {
	op, err := decodeOp(json.RawMessage(`{"operation":"update","task":{"id":"task-0001","priority":9.0,"origin_email_id":"m5"}}`))
	require.NoError(t, err)
	require.Equal(t, reconcile.KindUpdateTask, op.Kind)
	require.Equal(t, "task-0001", op.TaskID)
	require.Equal(t, 9, *op.Task.Priority)
	require.Nil(t, op.Task.OriginEmailID, "provenance is fixed at creation")
}

func TestDecodeOp_UpdateFieldsWin(t *testing.T) {
	op, err := decodeOp(json.RawMessage(`{"op":"update","task_id":"task-0002","fields":{"status":"completed"},"task":{"priority":1}}`))
	require.NoError(t, err)
	require.Equal(t, task.StatusDone, *op.Task.Status)
	require.Nil(t, op.Task.Priority)
}

func TestDecodeOp_Close(t *testing.T) {
	op, err := decodeOp(json.RawMessage(`{"op":"complete","task_id":" task-0003 "}`))
	require.NoError(t, err)
	require.Equal(t, reconcile.CloseTask("task-0003"), op)
}

func TestDecodeOp_InvalidValuesPassThrough(t *testing.T) {
	op, err := decodeOp(json.RawMessage(`{"op":"update","task_id":"task-0001","fields":{"status":"someday","due_date":"next week"}}`))
	require.NoError(t, err)
	require.Equal(t, task.Status("someday"), *op.Task.Status)
	require.Equal(t, "next week", *op.Task.DueDate)
	require.Error(t, task.ValidatePatch(op.Task))
}

func TestDecodeOp_UnknownKind(t *testing.T) {
	op, err := decodeOp(json.RawMessage(`{"op":"Delete","task_id":"task-0001"}`))
	require.NoError(t, err)
	require.Equal(t, reconcile.Kind("delete"), op.Kind)
	require.False(t, op.IsTaskOp())
}

func TestDecodeTaskOps_KeepsPlaceholders(t *testing.T) {
	ops, errs := decodeTaskOps([]json.RawMessage{
		json.RawMessage(`{"op":"close","task_id":"task-0001"}`),
		json.RawMessage(`{"op":"add","task":{"priority":"high"}}`),
	})
	require.Len(t, ops, 2)
	require.Len(t, errs, 1)
	require.Equal(t, kindUndecodable, ops[1].Kind)
}

func TestDecodeSender(t *testing.T) {
	p, err := decodeSender(json.RawMessage(`{"email":" Alice@Uni.edu ","name":"","importance":"HIGH","role":"Student","pinned":true,"last_seen_at":"2020-01-01T00:00:00Z"}`))
	require.NoError(t, err)
	require.Equal(t, "Alice@Uni.edu", p.Email)
	require.Nil(t, p.Name)
	require.Equal(t, sender.ImportanceHigh, *p.Importance)
	require.Equal(t, sender.RoleStudent, *p.Role)
	require.True(t, p.Pin)
	require.False(t, p.Unpin)

	p, err = decodeSender(json.RawMessage(`{"email":"a@x.com","pinned":false}`))
	require.NoError(t, err)
	require.False(t, p.Pin)
	require.False(t, p.Unpin, "pinned:false is not an unpin")

	p, err = decodeSender(json.RawMessage(`{"email":"a@x.com","unpin":true}`))
	require.NoError(t, err)
	require.True(t, p.Unpin)
}

func TestEncodeOp(t *testing.T) {
	desc := "Reply"
	w := encodeOp(reconcile.CreateTask(task.Patch{Description: &desc}))
	b, err := json.Marshal(w)
	require.NoError(t, err)
	require.JSONEq(t, `{"op":"add","task":{"description":"Reply"}}`, string(b))

	back, err := decodeOp(b)
	require.NoError(t, err)
	require.Equal(t, "Reply", *back.Task.Description)
}

func TestStringList(t *testing.T) {
	var s DailySummary
	require.NoError(t, json.Unmarshal([]byte(`{"suggested_responses":[{"email_id":"m1","draft_outline":"Thank them\n\nConfirm date"}]}`), &s))
	require.Equal(t, StringList{"Thank them", "Confirm date"}, s.SuggestedResponses[0].DraftOutline)
}

func TestDecodeOp_StatusWithSpace(t *testing.T) {
	op, err := decodeOp(json.RawMessage(`{"op":"update","task_id":"task-0003","fields":{"status":"In Progress"}}`))
	require.NoError(t, err)
	require.Equal(t, task.StatusInProgress, *op.Task.Status)
}
