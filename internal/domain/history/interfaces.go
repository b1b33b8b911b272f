package history

import "context"

// Repository provides persistence operations for history entries.
type Repository interface {
	AppendHistory(ctx context.Context, entry *Entry) error
	ListHistory(ctx context.Context, opts ListOptions) ([]Entry, error)
}
