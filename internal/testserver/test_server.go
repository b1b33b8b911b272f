// Package testserver runs the MCP server over HTTP against a temporary data
// directory, a scripted mailbox and a scripted inference backend.
package testserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/inboxtriage/internal/config"
	"github.com/rpggio/inboxtriage/internal/inference/inferencetest"
	"github.com/rpggio/inboxtriage/internal/mail"
	"github.com/rpggio/inboxtriage/internal/mail/mailtest"
	"github.com/rpggio/inboxtriage/internal/mcp"
	"github.com/rpggio/inboxtriage/internal/svc"
)

// Now is the fixed clock every test server runs on.
var Now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type TestServer struct {
	Server  *httptest.Server
	Context *svc.ServiceContext
	Mail    *mailtest.Source
	AI      *inferencetest.Scripted
	Config  config.Config
	Token   string
}

// New starts a server on the given store backend. Messages are served by
// the scripted mailbox; inference answers come from AI, which starts empty.
func New(t *testing.T, token, backend string, msgs ...mail.Message) *TestServer {
	t.Helper()

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Store.Backend = backend
	cfg.Server.Transport = "http"
	cfg.Server.AuthToken = token

	source := mailtest.New(msgs...)
	ai := inferencetest.New()
	sc, err := svc.NewServiceContext(context.Background(), cfg, nil, svc.Options{
		Source:    source,
		Completer: ai,
		Clock:     func() time.Time { return Now },
	})
	require.NoError(t, err)

	server := mcp.NewServer(mcp.Config{
		Services:      sc.Services(),
		AuthToken:     token,
		TransportMode: "http",
		Version:       "test",
	})
	httpServer := httptest.NewServer(mcp.NewHTTPHandler(server, nil))

	t.Cleanup(func() {
		httpServer.Close()
		_ = sc.Close()
	})

	return &TestServer{
		Server:  httpServer,
		Context: sc,
		Mail:    source,
		AI:      ai,
		Config:  cfg,
		Token:   token,
	}
}

// Connect opens a client session presenting token.
func (ts *TestServer) Connect(t *testing.T, token string) *sdkmcp.ClientSession {
	t.Helper()
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearer{token: token}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

// Message builds a mailbox message received age before Now.
func Message(id, from, subject, body string, age time.Duration) mail.Message {
	return mail.Message{
		Summary: mail.Summary{
			ID:         id,
			ThreadID:   "t-" + id,
			SenderAddr: from,
			ReceivedAt: Now.Add(-age),
			Subject:    subject,
			Snippet:    body,
		},
		Body: body,
	}
}

type bearer struct {
	token string
}

func (b bearer) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	if b.token != "" {
		r.Header.Set("Authorization", "Bearer "+b.token)
	}
	return http.DefaultTransport.RoundTrip(r)
}
