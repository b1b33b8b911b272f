package render

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/triage"
)

var started = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func sampleResult() *triage.Result {
	return &triage.Result{
		Outcome:   run.OutcomeSuccess,
		StartedAt: started,
		Summary: triage.DailySummary{
			SummaryDate: "2025-03-10",
			CriticalEmails: []triage.CriticalEmail{{
				EmailID: "m1", ThreadID: "t1", Sender: "Alice <alice@uni.edu>",
				Summary: "Needs grades\nby Friday", ReasonCritical: "deadline",
				LinkedTaskIDs: triage.StringList{"task-0002"},
			}},
			SuggestedResponses: []triage.SuggestedResponse{{
				EmailID: "m1", DraftOutline: triage.StringList{"Thank her", "Confirm"},
				FullDraft: "Hi Alice,\nWill do.",
			}},
		},
		OpenTasks: []task.Task{
			{ID: "task-0002", Priority: 8, DueDate: "2025-03-12", Status: task.StatusOpen, Description: "Send grades | final"},
			{ID: "task-0001", Priority: 5, Status: task.StatusInProgress, Description: "Review thesis"},
		},
	}
}

func TestMarkdown_Sections(t *testing.T) {
	out := Markdown(sampleResult())

	require.True(t, strings.HasPrefix(out, "# Daily Email Triage: 2025-03-10\n"))
	for _, h := range []string{"## Critical Emails", "## Suggested Responses", "## Other Notes", "## Open Tasks"} {
		require.Contains(t, out, h)
	}
	require.Less(t, strings.Index(out, "## Critical Emails"), strings.Index(out, "## Suggested Responses"))
	require.Contains(t, out, "1. **Thread:** `t1`, **Email ID:** `m1`")
	require.Contains(t, out, "   - **Summary:** Needs grades by Friday\n")
	require.Contains(t, out, "   - **Linked tasks:** task-0002\n")
	require.Contains(t, out, "     - Confirm\n")
	require.Contains(t, out, "     > Will do.\n")
	require.Contains(t, out, "| task-0002 | 8 | 2025-03-12 | open | Send grades \\| final |")
	require.Contains(t, out, "| task-0001 | 5 | - | in_progress | Review thesis |")
	require.Contains(t, out, "_No additional notes._")
	require.NotContains(t, out, "Partial run")
}

func TestMarkdown_Empty(t *testing.T) {
	out := Markdown(&triage.Result{Outcome: run.OutcomeSuccess, StartedAt: started})

	require.Contains(t, out, "# Daily Email Triage: 2025-03-10")
	require.Contains(t, out, "_No critical emails identified today._")
	require.Contains(t, out, "_No suggested responses for today._")
	require.Contains(t, out, "_No open tasks._")
}

func TestMarkdown_PartialAndWarnings(t *testing.T) {
	res := sampleResult()
	res.Outcome = run.OutcomePartial
	res.Reason = "skipped operations: 1 stale reference"
	res.Warnings = []string{"ignored 1 message IDs not in this run"}
	res.Summary.OtherNotes = "Quiet day."

	out := Markdown(res)
	require.Contains(t, out, "> **Partial run.** Changes were applied; skipped operations: 1 stale reference.")
	require.Contains(t, out, "Quiet day.\n\n- _ignored 1 message IDs not in this run_\n")
	require.NotContains(t, out, "_No additional notes._")
}

func TestMarkdown_Failure(t *testing.T) {
	err := errors.New("retrieval failed: 401")
	res := &triage.Result{
		Outcome:   run.OutcomeFailed,
		Reason:    err.Error(),
		StartedAt: started,
		Summary:   triage.FailureSummary(started, err),
		OpenTasks: sampleResult().OpenTasks,
	}

	out := Markdown(res)
	require.Contains(t, out, "**Run failed.** No changes were applied. retrieval failed: 401")
	require.Contains(t, out, "The triage run failed.")
	require.NotContains(t, out, "## Open Tasks")
}

func TestHTML(t *testing.T) {
	page, err := HTML("Daily <Triage>", Markdown(sampleResult())+"\n<script>alert(1)</script>\n")
	require.NoError(t, err)

	require.Contains(t, page, "<title>Daily &lt;Triage&gt;</title>")
	require.Contains(t, page, `<h2 id="critical-emails">Critical Emails</h2>`)
	require.Contains(t, page, "<table>")
	require.Contains(t, page, "<td>task-0002</td>")
	require.NotContains(t, page, "<script>")
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	files, err := WriteFiles(dir, sampleResult())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, MarkdownFile), files.Markdown)

	md, err := os.ReadFile(files.Markdown)
	require.NoError(t, err)
	require.Contains(t, string(md), "## Open Tasks")

	page, err := os.ReadFile(files.HTML)
	require.NoError(t, err)
	require.Contains(t, string(page), "<!DOCTYPE html>")
}
