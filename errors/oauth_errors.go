// Package errors defines the OAuth-style error shape every non-2xx relay
// response carries: {"error": ..., "error_description": ...}.
package errors

import "fmt"

// OAuth2Error represents a standardized OAuth 2.0 error.
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard OAuth2 error codes.
const (
	InvalidRequest = "invalid_request"
	InvalidClient  = "invalid_client"
	InvalidGrant   = "invalid_grant"
	ServerError    = "server_error"
	BadGateway     = "bad_gateway"
)

func NewInvalidRequest(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidRequest, Description: description}
}

func NewInvalidGrant(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidGrant, Description: description}
}

func NewServerError(description string) *OAuth2Error {
	return &OAuth2Error{Code: ServerError, Description: description}
}

// NewBadGateway wraps upstream transport failures (DNS, TLS, timeout) that
// never produced an OAuth error body.
func NewBadGateway(description string) *OAuth2Error {
	return &OAuth2Error{Code: BadGateway, Description: description}
}

// The relay's browser client keys off the literal error strings below, so
// they live in the error field itself rather than the description.

func NewMissingCodeOrRedirectURI() *OAuth2Error {
	return &OAuth2Error{Code: "Missing code or redirect_uri"}
}

func NewMissingRefreshToken() *OAuth2Error {
	return &OAuth2Error{Code: "Missing refresh_token"}
}

func NewInvalidJSONBody() *OAuth2Error {
	return &OAuth2Error{Code: "Invalid JSON body"}
}

func NewNotFound() *OAuth2Error {
	return &OAuth2Error{Code: "Not found"}
}

func NewMethodNotAllowed() *OAuth2Error {
	return &OAuth2Error{Code: "Method not allowed"}
}
