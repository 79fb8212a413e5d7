package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/scribeapp/token-relay/api/echoapi"
	"github.com/scribeapp/token-relay/config"
	"github.com/scribeapp/token-relay/internal/server"
	"github.com/scribeapp/token-relay/internal/upstream"
	"github.com/scribeapp/token-relay/log"
	"github.com/scribeapp/token-relay/tracing"
)

var (
	appLogger      log.Logger
	httpServer     *http.Server
	tracerProvider *sdktrace.TracerProvider
)

// bootstrapLogger is the fallback logger for failures that happen before
// the configured logger exists.
func bootstrapLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		stdLog := bootstrapLogger(os.Stderr)
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger = log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting token relay", map[string]interface{}{
		"http_addr":        cfg.HTTPAddr,
		"token_endpoint":   cfg.TokenEndpoint,
		"upstream_timeout": cfg.UpstreamTimeout.String(),
		"allowed_origin":   cfg.AllowedOrigin,
		"log_level":        logLevel.String(),
	})

	tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
	}
	tracerProvider = tp

	tokenClient := upstream.NewClient(cfg, appLogger)
	relayAPI := echoapi.NewRelayAPI(tokenClient, appLogger)

	httpServer = server.NewHTTPServer(cfg, appLogger, relayAPI)
	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": cfg.HTTPAddr})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(ctx, "Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	appLogger.Info(ctx, "Shutting down", map[string]interface{}{"signal": sig.String()})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
	}

	appLogger.Info(shutdownCtx, "Server gracefully stopped")
}
