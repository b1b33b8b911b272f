package run

import "context"

// Repository persists the run state.
type Repository interface {
	LoadState(ctx context.Context) (State, error)
	SaveState(ctx context.Context, state State) error
}
