package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `inboxtriage reads the user's unread mail once a day, keeps a prioritized task list and a directory of known senders, and writes a daily summary.

Core concepts:
- Run: one triage pass over a time window. Normal runs cover mail since the last successful normal run; backfills cover N days and never move that marker.
- Task: an action item with a stable ID (task-0001, ...), priority 1-10 (higher is more urgent), optional due date.
- Sender: a known correspondent with importance (high|normal|low), role and an optional pin.
- Instructions: plain-text preferences that steer every run. Change them with refine_instructions.

Typical workflow:
1) list_tasks and list_senders to see the current state.
2) run_triage to process new mail; read summary_markdown from the result.
3) Adjust by hand with add_task, complete_task and set_sender.
4) If the triage keeps misjudging something, call refine_instructions with feedback.

Docs:
- triage://docs/index (tools and when to use them)
- triage://docs/pipeline (how a run works, outcomes and failure handling)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "triage://docs/index",
		Name:        "docs_index",
		Title:       "inboxtriage docs index",
		Description: "Tools, field conventions and what to read next.",
		Content: `# inboxtriage: Agent Docs Index

## Tools

- ` + "`run_triage`" + ` runs the pipeline. Pass ` + "`days`" + ` to backfill.
- ` + "`recent_runs`" + ` lists past runs with their outcome and counts.
- ` + "`list_tasks`" + ` / ` + "`add_task`" + ` / ` + "`complete_task`" + ` manage tasks by hand.
- ` + "`list_senders`" + ` / ` + "`set_sender`" + ` manage the sender directory.
- ` + "`get_instructions`" + ` / ` + "`refine_instructions`" + ` read and revise the preference text.

## Field conventions

- Task status: open, in_progress, done, snoozed.
- Task source: email, manual, other.
- Priority: integer 1-10; 10 is most urgent; default 5.
- Due dates: YYYY-MM-DD.
- Sender importance: high, normal, low. Role: student, collaborator, admin, family, notification, other.
- Pins: ` + "`pin: true`" + ` pins; only ` + "`unpin: true`" + ` removes a pin. Omitting both leaves the pin alone.

## Read next

- ` + "`triage://docs/pipeline`" + ` for run semantics and outcomes.
`,
	},
	{
		URI:         "triage://docs/pipeline",
		Name:        "docs_pipeline",
		Title:       "How a triage run works",
		Description: "Run windows, the two inference passes, reconciliation and outcomes.",
		Content: `# How a triage run works

1. **Window.** Normal runs start at the last successful normal run (24 hours back on the first run). Backfills start N days back and include read mail.
2. **List.** Message summaries in the window are fetched: sender, time, subject, snippet.
3. **Pass 1.** The model sees summaries, tasks, senders and instructions, and picks which messages to read in full. Unknown IDs are ignored. If this pass returns garbage the run continues with nothing expanded and a warning.
4. **Fetch.** Full bodies of the selected messages are retrieved.
5. **Pass 2.** The model sees the bodies and proposes final task operations, sender updates and the daily summary.
6. **Reconcile.** Operations are applied to a copy of the state. Updates or closes naming unknown tasks are skipped as stale; repeated creates for the same message and description are skipped as duplicates; invalid values are skipped as invalid.
7. **Commit.** Tasks, senders and (normal runs only) the run marker are written.

## Outcomes

- ` + "`success`" + `: everything applied.
- ` + "`partial`" + `: changes were committed but some operations were skipped; ` + "`reason`" + ` says which.
- ` + "`failed`" + `: nothing was changed. Mail or model unreachable, unreadable pass-2 output, or a storage error. The run marker does not move, so the next run covers the same mail.

Only one run can use the data directory at a time; a concurrent request fails with RUN_IN_PROGRESS.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
