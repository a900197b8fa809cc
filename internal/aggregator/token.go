package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"bankfeed-sync-go/internal/logger"
)

// expiryBuffer is subtracted from the token lifetime so a token is never
// used at the instant it expires (clock skew, in-flight request latency).
const expiryBuffer = 60 * time.Second

const versionHeader = "aggregator-version"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenManager exchanges the API key for a short-lived access token and
// caches it. One manager exists per session; tokens are never shared across
// sessions and never persisted.
type TokenManager struct {
	creds   *Credentials
	authURL string
	version string
	client  *http.Client
	now     func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewTokenManager(creds *Credentials, authURL, version string) *TokenManager {
	return &TokenManager{
		creds:   creds,
		authURL: authURL,
		version: version,
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
}

// AccessToken returns a valid token, refreshing first if the cached one is
// missing or about to expire.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	if !m.HasValidAccessToken() {
		if err := m.Refresh(ctx); err != nil {
			return "", err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken, nil
}

// HasValidAccessToken reports whether a token is cached and still inside the
// expiry buffer.
func (m *TokenManager) HasValidAccessToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accessToken == "" {
		return false
	}
	return m.now().Before(m.expiresAt.Add(-expiryBuffer))
}

// Refresh unconditionally requests a new token with the current credential.
// On success the cached token is replaced; on failure the previous token is
// left untouched, since callers check validity rather than presence.
func (m *TokenManager) Refresh(ctx context.Context) error {
	log := logger.FromContext(ctx)

	apiKey := m.creds.APIKey()
	if apiKey == "" {
		return &AuthError{Reason: "no API key configured", Err: ErrMissingAPIKey}
	}

	log.Debug().Msg("requesting new aggregator access token")

	form := "scope=CLIENT_ACCESS"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL, strings.NewReader(form))
	if err != nil {
		return &AuthError{Reason: "building token request", Err: err}
	}
	req.Header.Set("Authorization", "Basic "+apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(versionHeader, m.version)

	resp, err := m.client.Do(req)
	if err != nil {
		return &AuthError{Reason: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error().Int("status", resp.StatusCode).Str("body", string(body)).
			Msg("failed to obtain aggregator access token")
		return &AuthError{Reason: fmt.Sprintf("token endpoint returned status %d", resp.StatusCode)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return &AuthError{Reason: "decoding token response", Err: err}
	}

	m.mu.Lock()
	m.accessToken = tr.AccessToken
	m.expiresAt = m.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	m.mu.Unlock()

	log.Debug().Int("expires_in", tr.ExpiresIn).Msg("stored new aggregator access token")
	return nil
}

// ClientToken requests a token scoped to a single remote user, used by the
// front-end bank-linking widget rather than by this service itself.
func (m *TokenManager) ClientToken(ctx context.Context, userID string) (string, error) {
	apiKey := m.creds.APIKey()
	if apiKey == "" {
		return "", &AuthError{Reason: "no API key configured", Err: ErrMissingAPIKey}
	}

	form := "scope=CLIENT_ACCESS&userId=" + userID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authURL, strings.NewReader(form))
	if err != nil {
		return "", &AuthError{Reason: "building client token request", Err: err}
	}
	req.Header.Set("Authorization", "Basic "+apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(versionHeader, m.version)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", &AuthError{Reason: "client token request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log := logger.FromContext(ctx)
		log.Error().Int("status", resp.StatusCode).Str("body", string(body)).
			Msg("failed to obtain client token")
		return "", &AuthError{Reason: fmt.Sprintf("token endpoint returned status %d", resp.StatusCode)}
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", &AuthError{Reason: "decoding client token response", Err: err}
	}
	return tr.AccessToken, nil
}
