package echoapi_test

import (
	"context"
	goerrors "errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/scribeapp/token-relay/api/echoapi"
	"github.com/scribeapp/token-relay/internal/upstream"
	"github.com/scribeapp/token-relay/log"
)

// fakeExchanger lets handler tests inject arbitrary upstream outcomes.
type fakeExchanger struct {
	resp *upstream.TokenResponse
	err  error
}

func (f *fakeExchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (*upstream.TokenResponse, error) {
	return f.resp, f.err
}

func (f *fakeExchanger) Refresh(ctx context.Context, refreshToken string) (*upstream.TokenResponse, error) {
	return f.resp, f.err
}

func newHandlerOnly(exchanger echoapi.TokenExchanger) http.Handler {
	e := echo.New()
	e.HTTPErrorHandler = echoapi.HTTPErrorHandler(log.NewNop())
	echoapi.NewRelayAPI(exchanger, log.NewNop()).RegisterRoutes(e)
	return e
}

func TestExchange_UnexpectedUpstreamError(t *testing.T) {
	handler := newHandlerOnly(&fakeExchanger{err: goerrors.New("boom")})

	rec := doJSON(handler, http.MethodPost, "/auth/exchange",
		`{"code": "c", "redirect_uri": "https://app.example.com/cb"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server_error", decodeBody(t, rec)["error"])
}

func TestExchange_OmitsAbsentUpstreamFields(t *testing.T) {
	handler := newHandlerOnly(&fakeExchanger{resp: &upstream.TokenResponse{AccessToken: "a"}})

	rec := doJSON(handler, http.MethodPost, "/auth/exchange",
		`{"code": "c", "redirect_uri": "https://app.example.com/cb"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "a", body["access_token"])
	_, hasRefresh := body["refresh_token"]
	assert.False(t, hasRefresh)
	_, hasExpiry := body["expires_in"]
	assert.False(t, hasExpiry)
}
