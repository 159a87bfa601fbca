package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user1", "exp": exp.Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestIsExpired(t *testing.T) {
	assert.False(t, IsExpired(signedToken(t, time.Now().Add(time.Hour)), 0))
	assert.True(t, IsExpired(signedToken(t, time.Now().Add(-time.Hour)), 0))
}

func TestIsExpiredHonorsSkew(t *testing.T) {
	token := signedToken(t, time.Now().Add(10*time.Second))

	assert.False(t, IsExpired(token, 0))
	assert.True(t, IsExpired(token, time.Minute))
}

func TestIsExpiredUnparseableCountsAsExpired(t *testing.T) {
	assert.True(t, IsExpired("not-a-jwt", 0))
	assert.True(t, IsExpired("", 0))
}

func TestIsExpiredNoExpClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user1"})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	assert.False(t, IsExpired(signed, 0))
}

func TestTokenNoCredentials(t *testing.T) {
	ts := NewTokenSource("http://unused", "", 0)

	_, err := ts.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenReturnsValidAccessToken(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))

	ts := NewTokenSource("http://unused", "", 0)
	ts.SetTokens(access, "refresh")

	got, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access, got)
}

func TestTokenRefreshesExpiredToken(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-1", body["refresh_token"])

		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  fresh,
			"refresh_token": "refresh-2",
		})
	}))
	defer server.Close()

	ts := NewTokenSource(server.URL, "test-key", 0)
	ts.SetTokens(signedToken(t, time.Now().Add(-time.Hour)), "refresh-1")

	got, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	// The rotated refresh token was installed.
	assert.Equal(t, "refresh-2", ts.refreshToken)
}

func TestTokenRefreshFailureSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	ts := NewTokenSource(server.URL, "", 0)
	ts.SetTokens(signedToken(t, time.Now().Add(-time.Hour)), "refresh-1")

	_, err := ts.Token(context.Background())
	assert.Error(t, err)
}

func TestTokenRefreshWithoutRefreshToken(t *testing.T) {
	ts := NewTokenSource("http://unused", "", 0)
	ts.SetTokens(signedToken(t, time.Now().Add(-time.Hour)), "")

	_, err := ts.Token(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}
