package sender

import "context"

// Repository provides persistence for the sender directory.
type Repository interface {
	LoadSenders(ctx context.Context) (Directory, error)
	SaveSenders(ctx context.Context, dir Directory) error
}
