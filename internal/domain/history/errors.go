package history

import "errors"

// ErrInvalidInput indicates invalid input for history operations.
var ErrInvalidInput = errors.New("invalid history input")
