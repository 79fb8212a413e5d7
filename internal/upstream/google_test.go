package upstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeapp/token-relay/config"
	ooerrors "github.com/scribeapp/token-relay/errors"
	"github.com/scribeapp/token-relay/internal/upstream"
	"github.com/scribeapp/token-relay/log"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		GoogleClientID:     "test-client-id",
		GoogleClientSecret: "test-client-secret",
		TokenEndpoint:      endpoint,
		UpstreamTimeout:    2 * time.Second,
	}
}

func TestClient_ExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "auth-code-1", r.PostForm.Get("code"))
		assert.Equal(t, "https://app.example.com/callback", r.PostForm.Get("redirect_uri"))
		assert.Equal(t, "test-client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "test-client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "a",
			"refresh_token": "r",
			"expires_in": 3600,
			"scope": "openid",
			"token_type": "Bearer"
		}`))
	}))
	defer server.Close()

	client := upstream.NewClient(testConfig(server.URL), log.NewNop())
	tok, err := client.ExchangeCode(context.Background(), "auth-code-1", "https://app.example.com/callback")
	require.NoError(t, err)

	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.Equal(t, int64(3600), tok.ExpiresIn)
}

func TestClient_Refresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-1", r.PostForm.Get("refresh_token"))
		assert.Empty(t, r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "a2", "expires_in": 3599}`))
	}))
	defer server.Close()

	client := upstream.NewClient(testConfig(server.URL), log.NewNop())
	tok, err := client.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)

	assert.Equal(t, "a2", tok.AccessToken)
	assert.Equal(t, int64(3599), tok.ExpiresIn)
	assert.Empty(t, tok.RefreshToken)
}

func TestClient_UpstreamRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_grant", "error_description": "Bad code"}`))
	}))
	defer server.Close()

	client := upstream.NewClient(testConfig(server.URL), log.NewNop())
	_, err := client.ExchangeCode(context.Background(), "bad-code", "https://app.example.com/callback")
	require.Error(t, err)

	var oauthErr *ooerrors.OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	assert.Equal(t, "invalid_grant", oauthErr.Code)
	assert.Equal(t, "Bad code", oauthErr.Description)
}

func TestClient_UpstreamRejectionWithoutBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := upstream.NewClient(testConfig(server.URL), log.NewNop())
	_, err := client.Refresh(context.Background(), "refresh-1")
	require.Error(t, err)

	var oauthErr *ooerrors.OAuth2Error
	require.ErrorAs(t, err, &oauthErr)
	assert.Equal(t, ooerrors.InvalidRequest, oauthErr.Code)
	assert.Contains(t, oauthErr.Description, "500")
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listens anymore

	client := upstream.NewClient(testConfig(server.URL), log.NewNop())
	_, err := client.ExchangeCode(context.Background(), "auth-code-1", "https://app.example.com/callback")
	require.Error(t, err)

	var transportErr *upstream.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.UpstreamTimeout = 20 * time.Millisecond
	client := upstream.NewClient(cfg, log.NewNop())

	_, err := client.Refresh(context.Background(), "refresh-1")
	require.Error(t, err)

	var transportErr *upstream.TransportError
	assert.ErrorAs(t, err, &transportErr)
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := upstream.NewClient(testConfig(server.URL), log.NewNop())
	_, err := client.ExchangeCode(context.Background(), "auth-code-1", "https://app.example.com/callback")
	require.Error(t, err)

	var transportErr *upstream.TransportError
	assert.ErrorAs(t, err, &transportErr)
}
