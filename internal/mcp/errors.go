package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/lock"
	"github.com/rpggio/inboxtriage/internal/repository"
	"github.com/rpggio/inboxtriage/internal/triage"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
	cause        error
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// MapError maps domain errors to MCP error codes. Unknown errors map to nil.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	api := func(code, hint string) *APIError {
		return &APIError{Code: code, Message: err.Error(), RecoveryHint: hint, cause: err}
	}
	switch {
	case errors.Is(err, task.ErrTaskNotFound):
		return api("TASK_NOT_FOUND", "Call list_tasks with include_done to see valid IDs")
	case errors.Is(err, task.ErrMissingDescription),
		errors.Is(err, task.ErrInvalidPriority),
		errors.Is(err, task.ErrInvalidStatus),
		errors.Is(err, task.ErrInvalidDueDate):
		return api("INVALID_TASK", "Priority is 1-10, due dates are YYYY-MM-DD")
	case errors.Is(err, sender.ErrInvalidAddress),
		errors.Is(err, sender.ErrInvalidImportance),
		errors.Is(err, sender.ErrInvalidRole):
		return api("INVALID_SENDER", "Importance is high|normal|low; see triage://docs/index for roles")
	case errors.Is(err, sender.ErrSenderNotFound):
		return api("SENDER_NOT_FOUND", "")
	case errors.Is(err, run.ErrInvalidDays), errors.Is(err, run.ErrInvalidMode):
		return api("INVALID_RUN", "days must be positive for a backfill")
	case errors.Is(err, history.ErrInvalidInput):
		return api("INVALID_INPUT", "")
	case errors.Is(err, triage.ErrEmptyFeedback):
		return api("EMPTY_FEEDBACK", "Describe what the triage should do differently")
	case errors.Is(err, triage.ErrRetrieval):
		return api("RETRIEVAL_FAILED", "Check mail credentials and the inference API key, then retry")
	case errors.Is(err, triage.ErrMalformedOutput):
		return api("MALFORMED_OUTPUT", "Retry; nothing was changed")
	case errors.Is(err, lock.ErrLocked):
		return api("RUN_IN_PROGRESS", "Wait for the other run to finish")
	case errors.Is(err, triage.ErrStoreIO), errors.Is(err, repository.ErrCorrupt):
		return api("STORE_FAILURE", "Check the data directory")
	default:
		return nil
	}
}

// toolError converts err into the error a tool handler returns.
func toolError(err error) error {
	if api := MapError(err); api != nil {
		return api
	}
	return err
}
