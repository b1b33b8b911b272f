package gmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

// CallbackPort is the local port that receives the OAuth redirect.
const CallbackPort = "6789"

const authTimeout = 5 * time.Minute

// ErrNoToken indicates no cached token exists and interactive auth is disabled.
var ErrNoToken = errors.New("no cached gmail token; run `triage auth` first")

// Scopes requested from the user. Access is read-only.
var Scopes = []string{gmailapi.GmailReadonlyScope}

// AuthConfig locates the OAuth client secrets and token cache.
type AuthConfig struct {
	CredentialsPath string
	TokenPath       string
	// Interactive allows starting the browser flow when no token is cached.
	Interactive bool
	// Prompt receives the consent URL. Defaults to stdout.
	Prompt io.Writer
}

// OAuthConfig reads the client secrets file and pins the redirect to the local callback.
func OAuthConfig(credentialsPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("reading client secrets %s: %w", credentialsPath, err)
	}
	cfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secrets: %w", err)
	}
	cfg.RedirectURL = callbackURL(cfg.RedirectURL)
	return cfg, nil
}

func callbackURL(configured string) string {
	u, err := url.Parse(configured)
	if err != nil || configured == "urn:ietf:wg:oauth:2.0:oob" || u.Hostname() == "" {
		return "http://localhost:" + CallbackPort + "/"
	}
	if u.Hostname() == "localhost" || u.Hostname() == "127.0.0.1" {
		u.Host = net.JoinHostPort(u.Hostname(), CallbackPort)
	}
	return u.String()
}

// HTTPClient returns a client that refreshes tokens automatically, running the
// browser consent flow first if no token is cached and the config allows it.
func HTTPClient(ctx context.Context, cfg AuthConfig, logger *slog.Logger) (*http.Client, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	oc, err := OAuthConfig(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}

	tok, err := LoadToken(cfg.TokenPath)
	if err != nil {
		if !cfg.Interactive {
			return nil, ErrNoToken
		}
		logger.Info("no cached gmail token, starting consent flow", "token_path", cfg.TokenPath)
		tok, err = tokenFromWeb(ctx, oc, cfg.Prompt, logger)
		if err != nil {
			return nil, err
		}
		if err := SaveToken(cfg.TokenPath, tok); err != nil {
			return nil, err
		}
	}

	src := &persistingSource{
		base:   oc.TokenSource(ctx, tok),
		path:   cfg.TokenPath,
		last:   tok,
		logger: logger,
	}
	return oauth2.NewClient(ctx, src), nil
}

// Authorize runs the consent flow unconditionally and caches the token.
func Authorize(ctx context.Context, cfg AuthConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	oc, err := OAuthConfig(cfg.CredentialsPath)
	if err != nil {
		return err
	}
	tok, err := tokenFromWeb(ctx, oc, cfg.Prompt, logger)
	if err != nil {
		return err
	}
	return SaveToken(cfg.TokenPath, tok)
}

// persistingSource writes refreshed tokens back to the cache file.
type persistingSource struct {
	base   oauth2.TokenSource
	path   string
	last   *oauth2.Token
	logger *slog.Logger
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := SaveToken(s.path, tok); err != nil {
			s.logger.Warn("could not persist refreshed gmail token", "error", err)
		}
		s.last = tok
	}
	return tok, nil
}

func tokenFromWeb(ctx context.Context, oc *oauth2.Config, prompt io.Writer, logger *slog.Logger) (*oauth2.Token, error) {
	if prompt == nil {
		prompt = os.Stdout
	}
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", "localhost:"+CallbackPort)
	if err != nil {
		return nil, fmt.Errorf("listening for oauth callback on %s: %w", CallbackPort, err)
	}

	state := fmt.Sprintf("triage-%d", time.Now().UnixNano())
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			code := q.Get("code")
			if code == "" {
				http.Error(w, "authorization code not found", http.StatusBadRequest)
				errCh <- errors.New("authorization code not found in redirect")
				return
			}
			fmt.Fprintln(w, "Authentication successful. You can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("oauth callback server: %w", err)
		}
	}()
	defer server.Close()

	authURL := oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(prompt, "Open this URL in your browser to authorize Gmail access:\n%s\n", authURL)
	logger.Info("waiting for oauth callback", "redirect", oc.RedirectURL)

	timer := time.NewTimer(authTimeout)
	defer timer.Stop()

	select {
	case code := <-codeCh:
		xctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := oc.Exchange(xctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchanging authorization code: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-timer.C:
		return nil, errors.New("authorization timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LoadToken reads a cached token.
func LoadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, fmt.Errorf("decoding token %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes a token readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token dir: %w", err)
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return os.Rename(tmp, path)
}
