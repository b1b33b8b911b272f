// Package gmail adapts the Gmail API to mail.Source.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/rpggio/inboxtriage/internal/mail"
)

const (
	userID = "me"

	// DefaultBodyLimit caps decoded body text handed to inference.
	DefaultBodyLimit = 8000
	listPageSize     = 100
)

// Client reads a single Gmail account.
type Client struct {
	srv       *gmailapi.Service
	bodyLimit int
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBodyLimit sets the body truncation budget in characters.
func WithBodyLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.bodyLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client from an authorized HTTP client.
func New(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	srv, err := gmailapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return NewWithService(srv, opts...), nil
}

// NewWithService wraps an existing service.
func NewWithService(srv *gmailapi.Service, opts ...Option) *Client {
	c := &Client{
		srv:       srv,
		bodyLimit: DefaultBodyLimit,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListSummaries lists matching messages newest first and fetches their headers.
// Messages whose metadata cannot be fetched are logged and skipped.
func (c *Client) ListSummaries(ctx context.Context, q mail.Query) ([]mail.Summary, error) {
	query := BuildQuery(q)
	c.logger.Info("listing messages", "query", query, "max", q.Max)

	var ids []string
	pageToken := ""
	for {
		call := c.srv.Users.Messages.List(userID).Q(query).Context(ctx)
		size := int64(listPageSize)
		if q.Max > 0 && !q.Oldest && q.Max-len(ids) < listPageSize {
			size = int64(q.Max - len(ids))
		}
		call = call.MaxResults(size)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("listing messages: %w", err)
		}
		for _, m := range resp.Messages {
			if m.Id != "" {
				ids = append(ids, m.Id)
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" || (q.Max > 0 && !q.Oldest && len(ids) >= q.Max) {
			break
		}
	}
	// the listing is newest first, so the oldest matches are at the end
	if q.Oldest && q.Max > 0 && len(ids) > q.Max {
		ids = ids[len(ids)-q.Max:]
	}

	out := make([]mail.Summary, 0, len(ids))
	for _, id := range ids {
		msg, err := c.srv.Users.Messages.Get(userID, id).
			Format("metadata").
			MetadataHeaders("From", "Subject", "Date").
			Context(ctx).
			Do()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("skipping message with unreadable metadata", "id", id, "error", err)
			continue
		}
		out = append(out, summaryFromMessage(msg))
	}
	return out, nil
}

// FullBody fetches and decodes one message.
func (c *Client) FullBody(ctx context.Context, id string) (mail.Message, error) {
	msg, err := c.srv.Users.Messages.Get(userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return mail.Message{}, fmt.Errorf("%w: %s", mail.ErrMessageNotFound, id)
		}
		return mail.Message{}, fmt.Errorf("fetching message %s: %w", id, err)
	}
	return mail.Message{
		Summary: summaryFromMessage(msg),
		Body:    Truncate(ExtractBody(msg.Payload), c.bodyLimit),
	}, nil
}
