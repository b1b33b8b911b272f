package task

// ListOptions filters task listings.
type ListOptions struct {
	IncludeDone bool
	Status      *Status
	Limit       int
}
