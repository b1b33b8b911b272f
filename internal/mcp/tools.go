package mcp

import (
	"context"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/render"
	"github.com/rpggio/inboxtriage/internal/triage"
)

func registerTools(server *sdkmcp.Server, svc Services) {
	h := &toolHandlers{svc: svc}

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "run_triage",
		Description: "Run the two-pass inbox triage now. Without days it covers mail since the last run; with days it backfills that many days, including read mail, without moving the run marker. Returns the outcome and the rendered daily summary.",
	}, h.runTriage)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "refine_instructions",
		Description: "Rewrite the triage preference text from feedback. The stored text only changes if the rewrite succeeds.",
	}, h.refineInstructions)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_instructions",
		Description: "Show the current triage preference text.",
	}, h.getInstructions)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks by priority, highest first. Completed tasks are hidden unless include_done is set.",
	}, h.listTasks)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_task",
		Description: "Add a task by hand. It gets the next sequential ID.",
	}, h.addTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task done.",
	}, h.completeTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_senders",
		Description: "List known senders, pinned and high-importance first.",
	}, h.listSenders)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "set_sender",
		Description: "Create or update a sender profile. Omitted fields are kept. Only unpin clears a pin.",
	}, h.setSender)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recent_runs",
		Description: "List recent triage runs, newest first.",
	}, h.recentRuns)
}

type toolHandlers struct {
	svc Services
}

func (h *toolHandlers) runTriage(ctx context.Context, _ *sdkmcp.CallToolRequest, in RunTriageParams) (*sdkmcp.CallToolResult, RunTriageResponse, error) {
	if in.Days < 0 {
		return nil, RunTriageResponse{}, toolError(run.ErrInvalidDays)
	}
	req := triage.RunRequest{Mode: run.ModeNormal}
	if in.Days > 0 {
		req = triage.RunRequest{Mode: run.ModeBackfill, Days: in.Days}
	}

	res, err := h.svc.Runner.Run(ctx, req)
	if err != nil {
		return nil, RunTriageResponse{}, toolError(err)
	}
	return nil, RunTriageResponse{
		RunID:          res.RunID,
		Outcome:        string(res.Outcome),
		Reason:         res.Reason,
		Since:          formatTime(res.Window.Since),
		Until:          formatTime(res.Window.Until),
		Messages:       res.Messages,
		Expanded:       len(res.Expanded),
		Applied:        res.Report.Applied,
		Skipped:        len(res.Report.Skipped),
		CreatedTaskIDs: res.Report.CreatedTaskIDs,
		Warnings:       res.Warnings,
		Summary:        render.Markdown(res),
	}, nil
}

func (h *toolHandlers) refineInstructions(ctx context.Context, _ *sdkmcp.CallToolRequest, in RefineInstructionsParams) (*sdkmcp.CallToolResult, InstructionsResponse, error) {
	text, err := h.svc.Instructions.Refine(ctx, in.Feedback)
	if err != nil {
		return nil, InstructionsResponse{}, toolError(err)
	}
	return nil, InstructionsResponse{Instructions: text}, nil
}

func (h *toolHandlers) getInstructions(ctx context.Context, _ *sdkmcp.CallToolRequest, _ GetInstructionsParams) (*sdkmcp.CallToolResult, InstructionsResponse, error) {
	text, err := h.svc.Instructions.Current(ctx)
	if err != nil {
		return nil, InstructionsResponse{}, toolError(err)
	}
	return nil, InstructionsResponse{Instructions: text}, nil
}

func (h *toolHandlers) listTasks(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListTasksParams) (*sdkmcp.CallToolResult, TaskListResponse, error) {
	opts := task.ListOptions{IncludeDone: in.IncludeDone, Limit: in.Limit}
	if in.Status != "" {
		st, err := task.ParseStatus(in.Status)
		if err != nil {
			return nil, TaskListResponse{}, toolError(err)
		}
		opts.Status = &st
	}

	tasks, err := h.svc.Tasks.List(ctx, opts)
	if err != nil {
		return nil, TaskListResponse{}, toolError(err)
	}
	resp := TaskListResponse{Tasks: make([]TaskResponse, 0, len(tasks))}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(t))
	}
	return nil, resp, nil
}

func (h *toolHandlers) addTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in AddTaskParams) (*sdkmcp.CallToolResult, TaskResponse, error) {
	t, err := h.svc.Tasks.Add(ctx, task.AddRequest{
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     strings.TrimSpace(in.DueDate),
		Source:      in.Source,
		Tags:        in.Tags,
	})
	if err != nil {
		return nil, TaskResponse{}, toolError(err)
	}
	return nil, toTaskResponse(*t), nil
}

func (h *toolHandlers) completeTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in CompleteTaskParams) (*sdkmcp.CallToolResult, TaskResponse, error) {
	t, err := h.svc.Tasks.Complete(ctx, in.ID)
	if err != nil {
		return nil, TaskResponse{}, toolError(err)
	}
	return nil, toTaskResponse(*t), nil
}

func (h *toolHandlers) listSenders(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListSendersParams) (*sdkmcp.CallToolResult, SenderListResponse, error) {
	profiles, err := h.svc.Senders.List(ctx)
	if err != nil {
		return nil, SenderListResponse{}, toolError(err)
	}
	resp := SenderListResponse{Senders: make([]SenderResponse, 0, len(profiles))}
	for _, p := range profiles {
		resp.Senders = append(resp.Senders, toSenderResponse(p))
	}
	return nil, resp, nil
}

func (h *toolHandlers) setSender(ctx context.Context, _ *sdkmcp.CallToolRequest, in SetSenderParams) (*sdkmcp.CallToolResult, SenderResponse, error) {
	patch := sender.Patch{
		Email: in.Email,
		Name:  in.Name,
		Notes: in.Notes,
		Pin:   in.Pin,
		Unpin: in.Unpin,
	}
	if in.Importance != nil {
		imp, err := sender.ParseImportance(*in.Importance)
		if err != nil {
			return nil, SenderResponse{}, toolError(err)
		}
		patch.Importance = &imp
	}
	if in.Role != nil {
		role, err := sender.ParseRole(*in.Role)
		if err != nil {
			return nil, SenderResponse{}, toolError(err)
		}
		patch.Role = &role
	}

	p, err := h.svc.Senders.Set(ctx, patch)
	if err != nil {
		return nil, SenderResponse{}, toolError(err)
	}
	return nil, toSenderResponse(*p), nil
}

func (h *toolHandlers) recentRuns(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentRunsParams) (*sdkmcp.CallToolResult, RunListResponse, error) {
	opts := history.ListOptions{Limit: in.Limit}
	if in.Mode != "" {
		m, err := run.ParseMode(in.Mode)
		if err != nil {
			return nil, RunListResponse{}, toolError(err)
		}
		opts.Mode = &m
	}
	if in.Outcome != "" {
		o := run.Outcome(strings.ToLower(strings.TrimSpace(in.Outcome)))
		opts.Outcome = &o
	}

	entries, err := h.svc.History.Recent(ctx, opts)
	if err != nil {
		return nil, RunListResponse{}, toolError(err)
	}
	resp := RunListResponse{Runs: make([]RunResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Runs = append(resp.Runs, toRunResponse(e))
	}
	return nil, resp, nil
}
