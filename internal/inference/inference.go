package inference

import (
	"context"
	"errors"
)

var (
	// ErrNoJSON indicates a response without a JSON object in it.
	ErrNoJSON = errors.New("response contains no JSON object")
	// ErrEmptyResponse indicates the backend returned no content.
	ErrEmptyResponse = errors.New("empty response from inference backend")
	// ErrUnknownProvider indicates an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown inference provider")
	// ErrMissingAPIKey indicates no credential was configured.
	ErrMissingAPIKey = errors.New("inference API key not configured")
)

// Request is a single prompt sent to the backend. A nil Temperature leaves
// the provider default.
type Request struct {
	System      string
	User        string
	JSON        bool
	MaxTokens   int
	Temperature *float64
}

// Completer turns a prompt into response text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
