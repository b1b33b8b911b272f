package run

import "errors"

var (
	// ErrInvalidMode indicates an unknown run mode.
	ErrInvalidMode = errors.New("invalid run mode")
	// ErrInvalidDays indicates a backfill without a positive day count.
	ErrInvalidDays = errors.New("backfill days must be positive")
)
