// Package upstream talks to the OAuth provider's token endpoint. It posts
// the grant forms itself rather than going through an OAuth client library
// because the relay must pass the provider's error and error_description
// fields through verbatim, which client libraries fold into opaque errors.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/scribeapp/token-relay/config"
	ooerrors "github.com/scribeapp/token-relay/errors"
	"github.com/scribeapp/token-relay/log"
)

// TokenResponse carries the fields the relay reads from the upstream token
// endpoint. Unknown fields are dropped on unmarshal, which is the point:
// only these ever cross back to the browser.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TransportError marks failures where the upstream never answered with an
// OAuth response body: DNS, TLS, timeouts, or an unparseable success body.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream token endpoint unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client exchanges grants against a single fixed token endpoint, attaching
// the server-held client credentials to every call.
type Client struct {
	endpoint     string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       log.Logger
}

// NewClient builds a Client from configuration. The configured upstream
// timeout bounds every outbound call.
func NewClient(cfg *config.Config, logger log.Logger) *Client {
	return &Client{
		endpoint:     cfg.TokenEndpoint,
		clientID:     cfg.GoogleClientID,
		clientSecret: cfg.GoogleClientSecret,
		httpClient:   &http.Client{Timeout: cfg.UpstreamTimeout},
		logger:       logger,
	}
}

// ExchangeCode trades a one-time authorization code plus its redirect URI
// for tokens (authorization_code grant).
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	return c.post(ctx, form)
}

// Refresh trades a refresh token for a new access token (refresh_token
// grant).
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	return c.post(ctx, form)
}

// post performs the single outbound call of a relay request. Non-2xx
// responses come back as *errors.OAuth2Error carrying the upstream error
// fields; everything where no OAuth body was obtained comes back as
// *TransportError.
func (c *Client) post(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var tr TokenResponse
		if err := json.Unmarshal(body, &tr); err != nil || tr.Error == "" {
			c.logger.Warn(ctx, "upstream rejection without OAuth error body", map[string]interface{}{
				"status": resp.StatusCode,
			})
			return nil, ooerrors.NewInvalidRequest(fmt.Sprintf("upstream returned status %d", resp.StatusCode))
		}
		return nil, &ooerrors.OAuth2Error{Code: tr.Error, Description: tr.ErrorDescription}
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("malformed upstream token response: %w", err)}
	}
	return &tr, nil
}
