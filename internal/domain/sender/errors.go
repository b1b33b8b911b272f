package sender

import "errors"

var (
	// ErrSenderNotFound indicates no profile exists for the address.
	ErrSenderNotFound = errors.New("sender not found")
	// ErrInvalidAddress indicates an empty or malformed address.
	ErrInvalidAddress = errors.New("invalid sender address")
	// ErrInvalidImportance indicates an unknown importance level.
	ErrInvalidImportance = errors.New("invalid sender importance")
	// ErrInvalidRole indicates an unknown sender role.
	ErrInvalidRole = errors.New("invalid sender role")
)
