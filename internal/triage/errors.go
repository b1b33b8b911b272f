package triage

import "errors"

var (
	// ErrRetrieval is returned when the mail source or inference backend
	// cannot be reached. Nothing is mutated.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrMalformedOutput is returned when an inference response does not
	// match the expected shape.
	ErrMalformedOutput = errors.New("malformed inference output")

	// ErrStaleReference marks operations naming tasks that don't exist.
	ErrStaleReference = errors.New("operation references an unknown task")

	// ErrStoreIO is returned when the record store can't be read or written.
	ErrStoreIO = errors.New("record store failure")

	// ErrEmptyFeedback is returned when refinement is asked for without feedback.
	ErrEmptyFeedback = errors.New("feedback is empty")
)
