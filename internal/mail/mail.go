// Package mail defines the read-only message source the triage pipeline pulls from.
package mail

import (
	"context"
	"errors"
	"time"
)

// ErrMessageNotFound is returned when a message ID is unknown to the source.
var ErrMessageNotFound = errors.New("message not found")

// Summary is the metadata shown to the first inference pass.
type Summary struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	SenderName string    `json:"sender_name,omitempty"`
	SenderAddr string    `json:"sender_email"`
	ReceivedAt time.Time `json:"received_at"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet,omitempty"`
}

// Message is a summary plus its decoded body.
type Message struct {
	Summary
	Body string `json:"body_text"`
}

// Query bounds a listing. Results are newest first. When more than Max
// messages match, the newest Max are kept, or the oldest Max with Oldest set.
type Query struct {
	Since       time.Time
	Until       time.Time // zero means open-ended
	IncludeRead bool
	Max         int
	Oldest      bool
}

// Source lists and fetches messages.
type Source interface {
	ListSummaries(ctx context.Context, q Query) ([]Summary, error)
	FullBody(ctx context.Context, id string) (Message, error)
}
