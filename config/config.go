package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the token relay.
type Config struct {
	HTTPAddr  string `mapstructure:"http_addr"`
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	// Upstream OAuth provider. The client secret stays server-side and is
	// never part of any response body.
	GoogleClientID     string        `mapstructure:"google_client_id"`
	GoogleClientSecret string        `mapstructure:"google_client_secret"`
	TokenEndpoint      string        `mapstructure:"token_endpoint"`
	UpstreamTimeout    time.Duration `mapstructure:"upstream_timeout"`

	// Origin allowed by the CORS headers. The relay serves a public
	// browser client, so the default is the wildcard.
	AllowedOrigin string `mapstructure:"allowed_origin"`

	OtelServiceName string `mapstructure:"otel_service_name"`
}

// LoadConfig loads configuration from file and environment variables.
// Environment variables use the RELAY prefix: RELAY_HTTP_ADDR,
// RELAY_GOOGLE_CLIENT_ID, and so on.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("relay_config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/token-relay/")

	viper.SetEnvPrefix("RELAY")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("http_addr", "0.0.0.0:8080")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_pretty", true)
	viper.SetDefault("token_endpoint", "https://oauth2.googleapis.com/token")
	viper.SetDefault("upstream_timeout", "10s")
	viper.SetDefault("allowed_origin", "*")
	viper.SetDefault("otel_service_name", "token-relay")
	// Credentials have no sensible default; the empty default registers
	// the key so AutomaticEnv feeds it through Unmarshal.
	viper.SetDefault("google_client_id", "")
	viper.SetDefault("google_client_secret", "")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil, fmt.Errorf("RELAY_GOOGLE_CLIENT_ID and RELAY_GOOGLE_CLIENT_SECRET must be set")
	}
	if cfg.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("upstream_timeout must be positive, got %s", cfg.UpstreamTimeout)
	}

	return &cfg, nil
}
