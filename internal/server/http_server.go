package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/scribeapp/token-relay/api/echoapi"
	"github.com/scribeapp/token-relay/config"
	"github.com/scribeapp/token-relay/log"
)

// NewHTTPServer creates and configures the relay's HTTP server.
func NewHTTPServer(cfg *config.Config, appLogger log.Logger, relayAPI *echoapi.RelayAPI) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = echoapi.HTTPErrorHandler(appLogger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(appLogger))
	e.Use(otelecho.Middleware(cfg.OtelServiceName))
	e.Use(corsAndMethodGate(cfg.AllowedOrigin))

	relayAPI.RegisterRoutes(e)

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// corsAndMethodGate stamps the relay's CORS headers on every response,
// answers preflight with 204, and rejects anything that is not POST before
// routing. The method check runs ahead of the router so unknown paths still
// answer 405 for non-POST methods.
func corsAndMethodGate(allowedOrigin string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowOrigin, allowedOrigin)
			h.Set(echo.HeaderAccessControlAllowMethods, "POST, OPTIONS")
			h.Set(echo.HeaderAccessControlAllowHeaders, echo.HeaderContentType)
			// Every relay response is JSON, including the body-less
			// preflight answer.
			h.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

			switch c.Request().Method {
			case http.MethodOptions:
				return c.NoContent(http.StatusNoContent)
			case http.MethodPost:
				return next(c)
			default:
				return echo.ErrMethodNotAllowed
			}
		}
	}
}

// requestLogger emits one structured entry per request.
func requestLogger(appLogger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := map[string]interface{}{
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     c.Response().Status,
				"latency":    time.Since(start).String(),
				"ip":         c.RealIP(),
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}
			if err != nil {
				appLogger.Error(req.Context(), "http request", err, fields)
			} else {
				appLogger.Info(req.Context(), "http request", fields)
			}

			return err
		}
	}
}
