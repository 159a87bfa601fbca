package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/govscan/backend/pkg/logger"
)

var ErrNoToken = errors.New("no auth token available")

// TokenSource holds the current bearer token and refreshes it before it
// expires. It is an opaque token source: callers only ever see a valid
// token or an error, never partial auth state.
type TokenSource struct {
	mu           sync.Mutex
	accessToken  string
	refreshToken string
	refreshURL   string
	apiKey       string
	skew         time.Duration
	httpClient   *http.Client
}

func NewTokenSource(refreshURL, apiKey string, skew time.Duration) *TokenSource {
	return &TokenSource{
		refreshURL: refreshURL,
		apiKey:     apiKey,
		skew:       skew,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetTokens installs a token pair obtained out of band (login).
func (t *TokenSource) SetTokens(access, refresh string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessToken = access
	t.refreshToken = refresh
}

// Token returns a bearer token valid for at least the configured skew,
// refreshing first when needed. It fails before any authorized network
// call can be attempted with a stale token.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accessToken == "" && t.refreshToken == "" {
		return "", ErrNoToken
	}

	if t.accessToken != "" && !IsExpired(t.accessToken, t.skew) {
		return t.accessToken, nil
	}

	if err := t.refresh(ctx); err != nil {
		return "", err
	}

	return t.accessToken, nil
}

// IsExpired inspects the token's exp claim without verifying the
// signature; verification is the remote service's job, we only decide
// whether a refresh is due. An unparseable token counts as expired.
func IsExpired(token string, skew time.Duration) bool {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}

	_, _, err := parser.ParseUnverified(token, claims)
	if err != nil {
		logger.Debug("Failed to decode token", zap.Error(err))
		return true
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return time.Now().Add(skew).After(exp.Time)
}

func (t *TokenSource) refresh(ctx context.Context) error {
	if t.refreshToken == "" {
		return ErrNoToken
	}

	body, _ := json.Marshal(map[string]string{
		"refresh_token": t.refreshToken,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("apikey", t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token refresh failed: status %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode refresh response: %w", err)
	}

	t.accessToken = payload.AccessToken
	if payload.RefreshToken != "" {
		t.refreshToken = payload.RefreshToken
	}

	logger.Info("Auth token refreshed")
	return nil
}
