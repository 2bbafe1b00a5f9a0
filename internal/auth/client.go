// Package auth authorizes requests to the Tado API.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// OAuth2 defaults of the Tado web app.
const (
	DefaultTokenURL = "https://auth.tado.com/oauth/token"
	DefaultClientID = "tado-web-app"
	defaultScope    = "home.user"

	// expiryMargin is subtracted from the token lifetime.
	expiryMargin = 5 * time.Minute
)

// Credentials holds the account credentials.
type Credentials struct {
	Username string
	Password string
}

// AuthResult contains the result of a successful token request.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// QueryCredentials authorizes requests by appending the account credentials
// to the query string, as the legacy API accepts.
type QueryCredentials Credentials

// Authorize implements api.Authorizer.
func (c QueryCredentials) Authorize(_ context.Context, req *http.Request) error {
	if c.Username == "" {
		return errors.New("no username configured")
	}
	q := req.URL.Query()
	q.Set("username", c.Username)
	q.Set("password", c.Password)
	req.URL.RawQuery = q.Encode()
	return nil
}

// TokenSource obtains bearer tokens with the OAuth2 password grant and
// caches them until shortly before they expire.
type TokenSource struct {
	httpClient   *http.Client
	logger       *slog.Logger
	creds        Credentials
	tokenURL     string
	clientID     string
	clientSecret string

	// Token cache to minimize login attempts
	tokenCache     *AuthResult
	tokenCacheMu   sync.RWMutex
	tokenExpiresAt time.Time
	now            func() time.Time
}

// NewTokenSource creates a token source. Empty tokenURL and clientID select
// the defaults.
func NewTokenSource(creds Credentials, tokenURL, clientID, clientSecret string, logger *slog.Logger) *TokenSource {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if clientID == "" {
		clientID = DefaultClientID
	}
	return &TokenSource{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger:       logger,
		creds:        creds,
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		now:          time.Now,
	}
}

// Authorize implements api.Authorizer.
func (t *TokenSource) Authorize(ctx context.Context, req *http.Request) error {
	token, err := t.getOrRefreshToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return nil
}

// Invalidate drops the cached token so the next request logs in again.
func (t *TokenSource) Invalidate() {
	t.tokenCacheMu.Lock()
	t.tokenCache = nil
	t.tokenCacheMu.Unlock()
}

// getOrRefreshToken returns a cached token if valid, or requests a new one.
func (t *TokenSource) getOrRefreshToken(ctx context.Context) (*AuthResult, error) {
	t.tokenCacheMu.RLock()
	if t.tokenCache != nil && t.now().Before(t.tokenExpiresAt) {
		token := t.tokenCache
		t.tokenCacheMu.RUnlock()
		return token, nil
	}
	t.tokenCacheMu.RUnlock()

	t.tokenCacheMu.Lock()
	defer t.tokenCacheMu.Unlock()

	// Double-check after acquiring write lock
	if t.tokenCache != nil && t.now().Before(t.tokenExpiresAt) {
		t.logger.Debug("Using cached token (acquired after lock)")
		return t.tokenCache, nil
	}

	t.logger.Info("Authenticating to Tado API", "reason", "token expired or missing")
	result, err := t.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	t.tokenCache = result
	expiresIn := time.Duration(result.ExpiresIn) * time.Second
	if expiresIn > expiryMargin {
		expiresIn -= expiryMargin
	}
	t.tokenExpiresAt = t.now().Add(expiresIn)

	t.logger.Info("Authentication successful, token cached",
		"expires_in", expiresIn.Round(time.Second))
	return result, nil
}

// Authenticate performs the password grant against the token endpoint.
func (t *TokenSource) Authenticate(ctx context.Context) (*AuthResult, error) {
	t.logger.Debug("Starting authentication", "username", t.creds.Username)

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", t.clientID)
	if t.clientSecret != "" {
		form.Set("client_secret", t.clientSecret)
	}
	form.Set("scope", defaultScope)
	form.Set("username", t.creds.Username)
	form.Set("password", t.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	res, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer res.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d: %s", res.StatusCode, string(b))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(b, &tokenResp); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return nil, errors.New("no access_token in response")
	}

	return &AuthResult{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}
