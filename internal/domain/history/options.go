package history

import "github.com/rpggio/inboxtriage/internal/domain/run"

// ListOptions provides filtering options for listing history.
type ListOptions struct {
	Mode    *run.Mode
	Outcome *run.Outcome
	Limit   int
}
