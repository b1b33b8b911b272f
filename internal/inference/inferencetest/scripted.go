// Package inferencetest provides a scripted inference backend for tests.
package inferencetest

import (
	"context"
	"errors"
	"sync"

	"github.com/rpggio/inboxtriage/internal/inference"
)

// ErrExhausted is returned when more calls arrive than responses were scripted.
var ErrExhausted = errors.New("scripted completer has no responses left")

// Reply is one scripted response.
type Reply struct {
	Text string
	Err  error
}

// Scripted returns its replies in order and records every request.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	Requests []inference.Request
}

// New returns a Scripted completer answering with texts in order.
func New(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Then appends a reply.
func (s *Scripted) Then(r Reply) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, r)
	return s
}

// Complete implements inference.Completer.
func (s *Scripted) Complete(_ context.Context, req inference.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)
	if len(s.replies) == 0 {
		return "", ErrExhausted
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.Text, r.Err
}

// Calls returns how many requests were made.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Requests)
}
