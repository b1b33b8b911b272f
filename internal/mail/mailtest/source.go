// Package mailtest provides an in-memory mail.Source for tests.
package mailtest

import (
	"context"
	"sort"
	"sync"

	"github.com/rpggio/inboxtriage/internal/mail"
)

// Source serves a fixed set of messages.
type Source struct {
	mu       sync.Mutex
	messages map[string]mail.Message
	order    []string
	read     map[string]bool

	// ListErr and BodyErr force failures when set.
	ListErr error
	BodyErr map[string]error

	Queries []mail.Query
	Fetched []string
}

// New returns a Source holding msgs in the given order.
func New(msgs ...mail.Message) *Source {
	s := &Source{
		messages: make(map[string]mail.Message),
		read:     make(map[string]bool),
		BodyErr:  make(map[string]error),
	}
	for _, m := range msgs {
		s.Add(m)
	}
	return s
}

// Add appends a message.
func (s *Source) Add(m mail.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[m.ID]; !ok {
		s.order = append(s.order, m.ID)
	}
	s.messages[m.ID] = m
}

// MarkRead flags a message as read so unread-only queries skip it.
func (s *Source) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.read[id] = true
}

func (s *Source) ListSummaries(_ context.Context, q mail.Query) ([]mail.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Queries = append(s.Queries, q)
	if s.ListErr != nil {
		return nil, s.ListErr
	}

	var out []mail.Summary
	for _, id := range s.order {
		m := s.messages[id]
		if !q.IncludeRead && s.read[id] {
			continue
		}
		if !q.Since.IsZero() && !m.ReceivedAt.After(q.Since) {
			continue
		}
		if !q.Until.IsZero() && !m.ReceivedAt.Before(q.Until) {
			continue
		}
		out = append(out, m.Summary)
	}
	// newest first, as the mailbox API lists
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	if q.Max > 0 && len(out) > q.Max {
		if q.Oldest {
			out = out[len(out)-q.Max:]
		} else {
			out = out[:q.Max]
		}
	}
	return out, nil
}

func (s *Source) FullBody(_ context.Context, id string) (mail.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fetched = append(s.Fetched, id)
	if err := s.BodyErr[id]; err != nil {
		return mail.Message{}, err
	}
	m, ok := s.messages[id]
	if !ok {
		return mail.Message{}, mail.ErrMessageNotFound
	}
	return m, nil
}
