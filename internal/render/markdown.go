// Package render turns run results into the human-facing daily summary.
package render

import (
	"fmt"
	"strings"

	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/triage"
)

// Markdown renders a run result as the daily summary document.
func Markdown(res *triage.Result) string {
	var b strings.Builder
	s := res.Summary

	date := s.SummaryDate
	if date == "" {
		date = res.StartedAt.Format(task.DateLayout)
	}
	fmt.Fprintf(&b, "# Daily Email Triage: %s\n\n", date)

	switch res.Outcome {
	case run.OutcomeFailed:
		fmt.Fprintf(&b, "> **Run failed.** No changes were applied. %s\n\n", oneLine(res.Reason))
	case run.OutcomePartial:
		fmt.Fprintf(&b, "> **Partial run.** Changes were applied; %s.\n\n", oneLine(res.Reason))
	}

	writeCritical(&b, s.CriticalEmails)
	writeResponses(&b, s.SuggestedResponses)

	b.WriteString("## Other Notes\n\n")
	notes := strings.TrimSpace(s.OtherNotes)
	if notes == "" && len(res.Warnings) == 0 {
		b.WriteString("_No additional notes._\n\n")
	}
	if notes != "" {
		b.WriteString(notes)
		b.WriteString("\n\n")
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "- _%s_\n", w)
	}
	if len(res.Warnings) > 0 {
		b.WriteString("\n")
	}

	if !res.Failed() {
		writeTasks(&b, res.OpenTasks)
	}
	return b.String()
}

func writeCritical(b *strings.Builder, items []triage.CriticalEmail) {
	b.WriteString("## Critical Emails\n\n")
	if len(items) == 0 {
		b.WriteString("_No critical emails identified today._\n\n")
		return
	}
	for i, ce := range items {
		head := fmt.Sprintf("**Email ID:** `%s`", ce.EmailID)
		if ce.ThreadID != "" {
			head = fmt.Sprintf("**Thread:** `%s`, ", ce.ThreadID) + head
		}
		fmt.Fprintf(b, "%d. %s\n", i+1, head)
		field(b, "From", ce.Sender)
		field(b, "Subject", ce.Subject)
		field(b, "Summary", ce.Summary)
		field(b, "Reason", ce.ReasonCritical)
		field(b, "Recommended action", ce.RecommendedAction)
		if len(ce.LinkedTaskIDs) > 0 {
			field(b, "Linked tasks", strings.Join(ce.LinkedTaskIDs, ", "))
		}
		b.WriteString("\n")
	}
}

func writeResponses(b *strings.Builder, items []triage.SuggestedResponse) {
	b.WriteString("## Suggested Responses\n\n")
	if len(items) == 0 {
		b.WriteString("_No suggested responses for today._\n\n")
		return
	}
	for i, sr := range items {
		fmt.Fprintf(b, "%d. **Email ID:** `%s`\n", i+1, sr.EmailID)
		if len(sr.DraftOutline) > 0 {
			b.WriteString("   - **Outline:**\n")
			for _, line := range sr.DraftOutline {
				fmt.Fprintf(b, "     - %s\n", oneLine(line))
			}
		}
		if draft := strings.TrimSpace(sr.FullDraft); draft != "" {
			b.WriteString("   - **Draft:**\n\n")
			for _, line := range strings.Split(draft, "\n") {
				fmt.Fprintf(b, "     > %s\n", line)
			}
		}
		b.WriteString("\n")
	}
}

func writeTasks(b *strings.Builder, tasks []task.Task) {
	b.WriteString("## Open Tasks\n\n")
	if len(tasks) == 0 {
		b.WriteString("_No open tasks._\n")
		return
	}
	b.WriteString("| ID | Priority | Due | Status | Description |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, t := range tasks {
		due := t.DueDate
		if due == "" {
			due = "-"
		}
		fmt.Fprintf(b, "| %s | %d | %s | %s | %s |\n", t.ID, t.Priority, due, t.Status, cell(t.Description))
	}
}

func field(b *strings.Builder, label, value string) {
	if value = oneLine(value); value != "" {
		fmt.Fprintf(b, "   - **%s:** %s\n", label, value)
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}
