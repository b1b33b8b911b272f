package triage

import (
	"encoding/json"
	"strings"

	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/inference"
	"github.com/rpggio/inboxtriage/internal/mail"
	"github.com/rpggio/inboxtriage/internal/reconcile"
)

const pass1System = `You triage a user's unread email. You receive message summaries (sender, time, subject, snippet), the user's known senders, their current task list and their written preferences. Follow the preferences when judging importance.

Decide which messages need their full text to be understood, and propose task changes.

Respond with one JSON object and nothing else:
{
  "emails_to_expand": ["<message id>", ...],
  "task_ops": [<task operation>, ...]
}

Task operations:
- {"op": "add", "task": {"description", "priority" (1-10, higher is more urgent), "due_date" (YYYY-MM-DD), "tags", "email_thread_id", "origin_email_id"}}
- {"op": "update", "task_id": "task-0001", "fields": {only the fields that change}}
- {"op": "close", "task_id": "task-0001"}

Only use message IDs from the input. Only reference task IDs from the task list.`

const pass2System = `You are doing a second, deeper triage pass. You now have the full text of the messages selected in the first pass, plus the known senders, the task list, the user's preferences and the first pass's preliminary task operations (advisory only).

Produce the final task operations, sender profile updates and a daily summary.

Respond with one JSON object and nothing else:
{
  "final_task_ops": [<task operation>, ...],
  "updated_senders": [{"email", "name", "importance" (high|normal|low), "role" (student|collaborator|admin|family|notification|other), "notes", "pinned", "unpin"}, ...],
  "daily_summary": {
    "summary_date": "YYYY-MM-DD",
    "critical_emails": [{"email_id", "thread_id", "sender", "subject", "summary", "reason_critical", "recommended_action", "linked_task_ids"}],
    "suggested_responses": [{"email_id", "draft_outline": ["..."], "full_draft"}],
    "other_notes": "..."
  }
}

Task operations use the same form as the first pass: add (with "task"), update (with "task_id" and "fields"), close (with "task_id"). Never invent task IDs; new tasks get IDs from the system. Include only the sender fields you want to change. Set "unpin": true only if the user's preferences explicitly demote a pinned sender. Keep every string on a single line; use "\n" escapes for line breaks.`

const refineSystem = `You maintain the preference text that steers an email triage assistant. The assistant reads summaries and bodies of email, keeps a directory of known senders and maintains a task list.

You receive the current preference text and the user's feedback after a run. Rewrite the preference text so it incorporates the feedback while staying clear and concise plain English.

Respond with one JSON object and nothing else:
{"instructions": "<the complete new preference text>"}`

// passContext is the shared state every pass sees.
type passContext struct {
	Instructions string           `json:"instructions_text"`
	Senders      []sender.Profile `json:"known_senders"`
	Tasks        []task.Task      `json:"tasks"`
}

func newPassContext(instructions string, tasks []task.Task, dir sender.Directory) passContext {
	if tasks == nil {
		tasks = []task.Task{}
	}
	return passContext{
		Instructions: instructions,
		Senders:      dir.Sorted(),
		Tasks:        tasks,
	}
}

func pass1Request(opts Options, summaries []mail.Summary, pc passContext) inference.Request {
	payload := struct {
		passContext
		Summaries []mail.Summary `json:"unread_summaries"`
	}{pc, summaries}

	return inference.Request{
		System:      pass1System,
		User:        userPrompt("Current state, today's message summaries and my preferences:", payload, "Pick the messages to expand and propose task operations."),
		JSON:        true,
		MaxTokens:   opts.Pass1MaxTokens,
		Temperature: opts.Temperature,
	}
}

func pass2Request(opts Options, bodies []mail.Message, preliminary []reconcile.Operation, pc passContext) inference.Request {
	wire := make([]wireOp, 0, len(preliminary))
	for _, op := range preliminary {
		wire = append(wire, encodeOp(op))
	}
	if bodies == nil {
		bodies = []mail.Message{}
	}
	payload := struct {
		passContext
		Expanded    []mail.Message `json:"expanded_emails"`
		Preliminary []wireOp       `json:"preliminary_task_ops"`
	}{pc, bodies, wire}

	return inference.Request{
		System:      pass2System,
		User:        userPrompt("Full text of the selected messages, my preferences, the current state and the first pass's preliminary operations:", payload, "Produce the final operations, sender updates and the daily summary."),
		JSON:        true,
		MaxTokens:   opts.Pass2MaxTokens,
		Temperature: opts.Temperature,
	}
}

func refineRequest(opts Options, current, feedback string) inference.Request {
	var b strings.Builder
	b.WriteString("CURRENT PREFERENCES:\n")
	b.WriteString(strings.TrimSpace(current))
	b.WriteString("\n\nFEEDBACK:\n")
	b.WriteString(strings.TrimSpace(feedback))
	b.WriteString("\n\nReturn the improved preference text.")

	return inference.Request{
		System:      refineSystem,
		User:        b.String(),
		JSON:        true,
		MaxTokens:   opts.RefineMaxTokens,
		Temperature: opts.Temperature,
	}
}

func userPrompt(intro string, payload any, ask string) string {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		// payload types are plain data; this only fails on programmer error
		panic(err)
	}
	return intro + "\n\n" + string(b) + "\n\n" + ask + "\nRespond with only the JSON object."
}
