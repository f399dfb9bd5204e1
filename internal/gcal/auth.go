package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"

	"github.com/christopherklint97/skedule/internal/calendar"
)

// LocalhostAuthPort is where the authorization redirect is captured.
const LocalhostAuthPort = "6789"

// Scopes requested from Google: free/busy reads and event inserts.
var Scopes = []string{
	calendarapi.CalendarEventsScope,
	calendarapi.CalendarReadonlyScope,
}

// ConfigFromFile reads an OAuth client credentials file downloaded from the
// Google Cloud console. Out-of-band redirects are rewritten to the local
// callback server.
func ConfigFromFile(path string) (*oauth2.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("google credentials file not configured: %w", calendar.ErrNotConnected)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client secret file %s: %w", path, err)
	}

	conf, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret file: %w", err)
	}

	u, err := url.Parse(conf.RedirectURL)
	switch {
	case conf.RedirectURL == "" || conf.RedirectURL == "urn:ietf:wg:oauth:2.0:oob":
		conf.RedirectURL = "http://localhost:" + LocalhostAuthPort + "/oauth2callback"
	case err == nil && (u.Hostname() == "localhost" || u.Hostname() == "127.0.0.1"):
		u.Host = u.Hostname() + ":" + LocalhostAuthPort
		conf.RedirectURL = u.String()
	}

	return conf, nil
}

// TokenStore keeps one Google token per user in the state table.
type TokenStore struct {
	state calendar.StateStore
}

func NewTokenStore(state calendar.StateStore) *TokenStore {
	return &TokenStore{state: state}
}

func tokenKey(userID string) string {
	return "google_token:" + userID
}

// Load returns nil, nil when the user has no token.
func (s *TokenStore) Load(userID string) (*oauth2.Token, error) {
	raw, err := s.state.GetState(tokenKey(userID))
	if err != nil {
		return nil, fmt.Errorf("reading google token: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("parsing google token: %w", err)
	}
	return &tok, nil
}

func (s *TokenStore) Save(userID string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshaling google token: %w", err)
	}
	return s.state.SetState(tokenKey(userID), string(data))
}

func (s *TokenStore) Delete(userID string) error {
	return s.state.DeleteState(tokenKey(userID))
}

// savingTokenSource persists tokens whenever the underlying source refreshes.
type savingTokenSource struct {
	base   oauth2.TokenSource
	store  *TokenStore
	userID string
	last   string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, fmt.Errorf("%w: %v", calendar.ErrTokenInvalid, err)
		}
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(s.userID, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

// Authorize runs the authorization code flow: it prints the consent URL via
// show, waits for the redirect on the local callback server and stores the
// resulting token for userID.
func Authorize(ctx context.Context, conf *oauth2.Config, tokens *TokenStore, userID string, show func(url string)) error {
	listener, err := net.Listen("tcp", "127.0.0.1:"+LocalhostAuthPort)
	if err != nil {
		return fmt.Errorf("starting listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	state := fmt.Sprintf("skedule-%d", time.Now().UnixNano())
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "authorization code not found", http.StatusBadRequest)
				errCh <- fmt.Errorf("authorization code not found in redirect")
				return
			}
			fmt.Fprintln(w, "Authentication successful. You can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer server.Shutdown(context.Background())

	show(conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")))

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	select {
	case code := <-codeCh:
		return Exchange(ctx, conf, tokens, userID, code)
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("authorization timed out: %w", ctx.Err())
	}
}

// Exchange trades an authorization code for a token and stores it.
func Exchange(ctx context.Context, conf *oauth2.Config, tokens *TokenStore, userID, code string) error {
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchanging authorization code: %w", err)
	}
	if err := tokens.Save(userID, tok); err != nil {
		return fmt.Errorf("saving google token: %w", err)
	}
	return nil
}
