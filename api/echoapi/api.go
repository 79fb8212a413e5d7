package echoapi

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scribeapp/token-relay/dto"
	"github.com/scribeapp/token-relay/errors"
	"github.com/scribeapp/token-relay/internal/upstream"
	"github.com/scribeapp/token-relay/log"
)

// TokenExchanger is the outbound side of the relay: one grant call per
// incoming request. *upstream.Client implements it; tests substitute stubs.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*upstream.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*upstream.TokenResponse, error)
}

// RelayAPI holds the token relay's HTTP handlers.
type RelayAPI struct {
	tokens TokenExchanger
	logger log.Logger
}

// NewRelayAPI initializes the relay API.
func NewRelayAPI(tokens TokenExchanger, logger log.Logger) *RelayAPI {
	return &RelayAPI{
		tokens: tokens,
		logger: logger,
	}
}

// RegisterRoutes registers the relay routes.
func (ra *RelayAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/exchange", ra.ExchangeHandler)
	e.POST("/auth/refresh", ra.RefreshHandler)
}

// ExchangeHandler handles the authorization-code grant. It validates the
// client-supplied code and redirect_uri, forwards them to the upstream
// token endpoint with the server-held credentials attached, and returns the
// minimized token response. Validation failures never reach the upstream.
func (ra *RelayAPI) ExchangeHandler(c echo.Context) error {
	var req dto.ExchangeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidJSONBody())
	}
	if req.Code == "" || req.RedirectURI == "" {
		return c.JSON(http.StatusBadRequest, errors.NewMissingCodeOrRedirectURI())
	}

	ctx := c.Request().Context()
	tok, err := ra.tokens.ExchangeCode(ctx, req.Code, req.RedirectURI)
	if err != nil {
		return ra.upstreamError(c, "code exchange", err)
	}

	return c.JSON(http.StatusOK, dto.ExchangeResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    tok.ExpiresIn,
	})
}

// RefreshHandler handles the refresh-token grant. The response never
// includes a refresh token: providers do not rotate it on refresh, and the
// client already holds the one it sent.
func (ra *RelayAPI) RefreshHandler(c echo.Context) error {
	var req dto.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errors.NewInvalidJSONBody())
	}
	if req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, errors.NewMissingRefreshToken())
	}

	ctx := c.Request().Context()
	tok, err := ra.tokens.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return ra.upstreamError(c, "token refresh", err)
	}

	return c.JSON(http.StatusOK, dto.RefreshResponse{
		AccessToken: tok.AccessToken,
		ExpiresIn:   tok.ExpiresIn,
	})
}

// upstreamError maps the two upstream failure classes: OAuth rejections
// pass through as 400 with the provider's own error fields, transport
// failures become 502.
func (ra *RelayAPI) upstreamError(c echo.Context, op string, err error) error {
	ctx := c.Request().Context()

	var oauthErr *errors.OAuth2Error
	if goerrors.As(err, &oauthErr) {
		ra.logger.Info(ctx, "upstream rejected "+op, map[string]interface{}{
			"error": oauthErr.Code,
		})
		return c.JSON(http.StatusBadRequest, oauthErr)
	}

	var transportErr *upstream.TransportError
	if goerrors.As(err, &transportErr) {
		ra.logger.Error(ctx, "upstream unreachable during "+op, err, nil)
		return c.JSON(http.StatusBadGateway, errors.NewBadGateway("upstream token endpoint unreachable"))
	}

	ra.logger.Error(ctx, "unexpected failure during "+op, err, nil)
	return c.JSON(http.StatusInternalServerError, errors.NewServerError("internal error"))
}

// HTTPErrorHandler renders every error echo surfaces (unmatched routes,
// panics recovered into errors) in the relay's JSON error shape, so callers
// always receive a JSON body.
func HTTPErrorHandler(logger log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		var body *errors.OAuth2Error

		var httpErr *echo.HTTPError
		if goerrors.As(err, &httpErr) {
			code = httpErr.Code
			switch code {
			case http.StatusNotFound:
				body = errors.NewNotFound()
			case http.StatusMethodNotAllowed:
				body = errors.NewMethodNotAllowed()
			default:
				body = &errors.OAuth2Error{Code: errors.ServerError, Description: fmt.Sprint(httpErr.Message)}
			}
		} else {
			logger.Error(c.Request().Context(), "unhandled error", err, map[string]interface{}{
				"path": c.Request().URL.Path,
			})
			body = errors.NewServerError("internal error")
		}

		if jsonErr := c.JSON(code, body); jsonErr != nil {
			logger.Error(c.Request().Context(), "failed to write error response", jsonErr, nil)
		}
	}
}
