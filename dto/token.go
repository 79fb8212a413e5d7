// Package dto holds the transient request and response shapes of the relay
// HTTP surface. Nothing here outlives a single request.
package dto

// ExchangeRequest is the body of POST /auth/exchange: a one-time
// authorization code plus the redirect URI it was issued against.
type ExchangeRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ExchangeResponse is the minimized success body of /auth/exchange. Fields
// the upstream omitted are omitted here too; nothing else from the upstream
// payload is ever forwarded.
type ExchangeResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// RefreshResponse is the minimized success body of /auth/refresh. It never
// carries a refresh token, even when the upstream rotates one.
type RefreshResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
}
