// Package main is the entrypoint for the finledger API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/finledger/finledger/internal/auth"
	"github.com/finledger/finledger/internal/cache"
	"github.com/finledger/finledger/internal/config"
	"github.com/finledger/finledger/internal/events"
	"github.com/finledger/finledger/internal/handler"
	"github.com/finledger/finledger/internal/metrics"
	"github.com/finledger/finledger/internal/middleware"
	"github.com/finledger/finledger/internal/repository"
	"github.com/finledger/finledger/internal/server"
	"github.com/finledger/finledger/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if cfg.AutoMigrate {
		if err := repository.Migrate(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
			logger.Error(
				"failed to run migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("migrations applied", "driver", cfg.DatabaseDriver)
	}

	store, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to open record store",
			slog.String("driver", cfg.DatabaseDriver),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	logger.Info("record store ready", "driver", cfg.DatabaseDriver)

	// Redis is optional. Without it the gate reads the store directly and
	// rate limiting is off.
	var (
		redisClient *redis.Client
		cacheClient *cache.Cache
	)
	if cfg.RedisURL != "" {
		redisClient, err = cache.Dial(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			_ = store.Close()
			os.Exit(1)
		}
		cacheClient = cache.NewWithClient(redisClient)
		logger.Info("connected to Redis")
	}

	publisher, err := newPublisher(cfg, redisClient)
	if err != nil {
		logger.Error(
			"failed to set up event publisher",
			slog.String("backend", cfg.EventsBackend),
			slog.String("error", sanitizeError(err, cfg.AMQPURL)),
		)
		os.Exit(1)
	}

	recorder := metrics.NewInMemory()
	notifier := events.NewNotifier(publisher, logger, recorder)

	ledgerService := service.NewLedgerService(store, recorder, notifier, logger)
	aggregationService := service.NewAggregationService(store, recorder)
	userService := service.NewUserService(store, logger)

	// Interfaces must stay nil, not hold a nil *cache.Cache.
	var (
		userCache auth.UserCache
		limiter   middleware.Limiter
		health    = handler.NewHealthHandler(store, nil)
	)
	if cacheClient != nil {
		userCache = cacheClient
		limiter = cacheClient
		health = handler.NewHealthHandler(store, cacheClient)
	}

	router := server.NewRouter(server.RouterConfig{
		Logger:   logger,
		Store:    store,
		Ledger:   ledgerService,
		Summary:  aggregationService,
		Users:    userService,
		Gate:     auth.NewGate(store, userCache, logger),
		Metrics:  recorder,
		Health:   health,
		Security: middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORS:     corsConfig(cfg),
		RateLimit: middleware.RateLimitConfig{
			Limiter:           limiter,
			Enabled:           cfg.RateLimitEnabled,
			RequestsPerMinute: cfg.RateLimitPerMinute,
			Burst:             cfg.RateLimitBurst,
		},
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		Development:        cfg.IsDevelopment(),
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Stopped in reverse: events drain first, the store closes last.
	srv.OnShutdown("store", func(context.Context) error { return store.Close() })
	if cacheClient != nil {
		srv.OnShutdown("redis", func(context.Context) error { return cacheClient.Close() })
	}
	srv.OnShutdown("events", notifier.Close)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"driver", cfg.DatabaseDriver,
		"events", cfg.EventsBackend,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// newPublisher selects the change event backend.
func newPublisher(cfg *config.Config, redisClient *redis.Client) (events.Publisher, error) {
	switch cfg.EventsBackend {
	case config.EventsRedis:
		return events.NewStreamPublisher(redisClient), nil
	case config.EventsAMQP:
		return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	case config.EventsWebhook:
		return events.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookSecret), nil
	default:
		return events.Noop{}, nil
	}
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig()
	c.AllowedOrigins = cfg.AllowedOrigins()
	if len(c.AllowedOrigins) == 0 && cfg.IsDevelopment() {
		c.AllowedOrigins = []string{"*"}
	}
	return c
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "finledger")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL keeps the username of a connection string and drops the password.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		if username := parsed.User.Username(); username != "" {
			parsed.User = url.User(username)
		} else {
			parsed.User = url.User("redacted")
		}
	}

	return parsed.String()
}

// sanitizeError strips connection secrets from err's message.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
