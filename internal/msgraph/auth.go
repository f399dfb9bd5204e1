package msgraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/christopherklint97/skedule/internal/calendar"
)

var scopes = []string{"Calendars.ReadWrite", "offline_access"}

// refreshMargin renews access tokens this long before they expire.
const refreshMargin = 5 * time.Minute

// Auth runs the device code flow against Azure AD and keeps each user's
// Graph token fresh.
type Auth struct {
	conf       *oauth2.Config
	tokens     *TokenStore
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAuth creates an Auth for the given Azure AD app. An empty tenant means
// "common".
func NewAuth(clientID, tenantID string, tokens *TokenStore, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if tenantID == "" {
		tenantID = "common"
	}
	endpoint := microsoft.AzureADEndpoint(tenantID)
	if endpoint.DeviceAuthURL == "" {
		endpoint.DeviceAuthURL = "https://login.microsoftonline.com/" + tenantID + "/oauth2/v2.0/devicecode"
	}
	// Public clients have no secret to put in a header.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Auth{
		conf: &oauth2.Config{
			ClientID: clientID,
			Endpoint: endpoint,
			Scopes:   scopes,
		},
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Configured reports whether an Azure AD app id is set.
func (a *Auth) Configured() bool {
	return a.conf.ClientID != ""
}

func (a *Auth) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// Login runs the device code flow for userID. prompt receives the message
// telling the user where to enter the code.
func (a *Auth) Login(ctx context.Context, userID string, prompt func(msg string)) error {
	ctx = a.context(ctx)

	da, err := a.conf.DeviceAuth(ctx)
	if err != nil {
		return fmt.Errorf("requesting device code: %w", err)
	}
	prompt(fmt.Sprintf("Open %s and enter code %s", da.VerificationURI, da.UserCode))

	if !da.Expiry.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, da.Expiry)
		defer cancel()
	}

	a.logger.Debug("waiting for device authorization", "interval", da.Interval)
	tok, err := a.conf.DeviceAccessToken(ctx, da)
	if err != nil {
		return fmt.Errorf("waiting for authorization: %w", err)
	}
	return a.tokens.Save(userID, tok)
}

// EnsureValidToken loads the user's token, refreshes it when it is about to
// expire and returns a usable access token.
func (a *Auth) EnsureValidToken(ctx context.Context, userID string) (string, error) {
	tok, err := a.tokens.Load(userID)
	if err != nil {
		return "", fmt.Errorf("loading cached tokens: %w", err)
	}
	if tok == nil {
		return "", fmt.Errorf("microsoft graph (run 'skedule calendar auth graph'): %w", calendar.ErrNotConnected)
	}

	// Seeding the refresher with only the refresh token forces a real refresh
	// once the outer source decides the access token is too old.
	refresher := a.conf.TokenSource(a.context(ctx), &oauth2.Token{RefreshToken: tok.RefreshToken})
	fresh, err := oauth2.ReuseTokenSourceWithExpiry(tok, refresher, refreshMargin).Token()
	if err != nil {
		return "", fmt.Errorf("%w (run 'skedule calendar auth graph'): %v", calendar.ErrTokenInvalid, err)
	}

	if fresh.AccessToken != tok.AccessToken {
		a.logger.Debug("graph access token refreshed", "user", userID)
		if err := a.tokens.Save(userID, fresh); err != nil {
			a.logger.Warn("failed to cache refreshed tokens", "error", err)
		}
	}
	return fresh.AccessToken, nil
}
