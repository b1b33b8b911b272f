package task

import "errors"

var (
	// ErrTaskNotFound indicates the task doesn't exist.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidPriority indicates a priority outside 1..10.
	ErrInvalidPriority = errors.New("priority must be between 1 and 10")
	// ErrInvalidStatus indicates an unknown task status.
	ErrInvalidStatus = errors.New("invalid task status")
	// ErrInvalidDueDate indicates a due date not in YYYY-MM-DD form.
	ErrInvalidDueDate = errors.New("due date must be YYYY-MM-DD")
	// ErrMissingDescription indicates a create without a description.
	ErrMissingDescription = errors.New("task description required")
)
