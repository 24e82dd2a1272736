// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Supported values for EVENTS_BACKEND.
const (
	EventsNone    = "none"
	EventsRedis   = "redis"
	EventsAMQP    = "amqp"
	EventsWebhook = "webhook"
)

// Config holds all application configuration.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"3001"`

	// Record store
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	AutoMigrate    bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	// Cache (Redis). Optional; without it the user cache and rate limiting are off.
	RedisURL string `env:"REDIS_URL"`

	// Change events
	EventsBackend string `env:"EVENTS_BACKEND" envDefault:"none"`
	AMQPURL       string `env:"AMQP_URL"`
	AMQPExchange  string `env:"AMQP_EXCHANGE" envDefault:"finledger.events"`
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Per-user rate limiting
	RateLimitEnabled   bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitPerMinute int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
	RateLimitBurst     int  `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// e.g. "https://example.com,https://*.example.com"
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// AllowedOrigins returns the configured origins with blanks removed.
func (c *Config) AllowedOrigins() []string {
	result := make([]string, 0, len(c.CORSAllowedOrigins))
	for _, origin := range c.CORSAllowedOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate checks that related settings agree with each other.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for driver %q", c.DatabaseDriver)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.EventsBackend {
	case EventsNone:
	case EventsRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when EVENTS_BACKEND=redis")
		}
	case EventsAMQP:
		if c.AMQPURL == "" {
			return errors.New("AMQP_URL is required when EVENTS_BACKEND=amqp")
		}
	case EventsWebhook:
		if c.WebhookURL == "" {
			return errors.New("WEBHOOK_URL is required when EVENTS_BACKEND=webhook")
		}
	default:
		return fmt.Errorf("unsupported EVENTS_BACKEND %q", c.EventsBackend)
	}

	if c.AppPort <= 0 || c.AppPort > 65535 {
		return fmt.Errorf("APP_PORT %d out of range", c.AppPort)
	}
	if c.RateLimitEnabled && c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive when rate limiting is enabled")
	}

	return nil
}

// Load reads an optional .env file, then parses environment variables.
// Variables already set in the environment take precedence over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
