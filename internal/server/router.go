package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/finledger/finledger/internal/handler"
	"github.com/finledger/finledger/internal/metrics"
	"github.com/finledger/finledger/internal/middleware"
	"github.com/finledger/finledger/internal/repository"
	"github.com/finledger/finledger/internal/service"
)

// RouterConfig carries everything the HTTP routes depend on.
type RouterConfig struct {
	Logger   *slog.Logger
	Store    repository.Store
	Ledger   *service.LedgerService
	Summary  *service.AggregationService
	Users    *service.UserService
	Gate     middleware.Authenticator
	Metrics  *metrics.InMemoryRecorder
	Health   *handler.HealthHandler
	Security middleware.SecurityConfig
	CORS     middleware.CORSConfig
	// RateLimit.Limiter may be nil; the limit is then not enforced.
	RateLimit          middleware.RateLimitConfig
	MaxRequestBodySize int64
	Development        bool
}

// NewRouter builds the chi router for the ledger API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := handler.New()
	transactions := handler.NewTransactionHandler(cfg.Ledger, logger)
	summaries := handler.NewSummaryHandler(cfg.Summary, logger)
	users := handler.NewUserHandler(cfg.Users, logger)
	categories := handler.NewCategoryHandler(cfg.Store, logger)
	health := cfg.Health
	if health == nil {
		health = handler.NewHealthHandler(cfg.Store, nil)
	}

	var recorder metrics.Recorder = metrics.NewNoop()
	var snapshotter metrics.Snapshotter
	if cfg.Metrics != nil {
		recorder = cfg.Metrics
		snapshotter = cfg.Metrics
	}
	metricsHandler := handler.NewMetricsHandler(snapshotter)

	rateLimit := cfg.RateLimit
	rateLimit.Logger = logger
	rateLimit.Metrics = recorder

	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, cfg.Development))
	r.Use(middleware.Security(cfg.Security))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/", h.Index)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Post("/register", users.Register)

	r.Route("/api/v1", func(r chi.Router) {
		// Registration is the only unauthenticated API route.
		r.Post("/users", users.Register)
		r.Post("/register", users.Register)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(middleware.AuthConfig{
				Logger:  logger,
				Gate:    cfg.Gate,
				Metrics: recorder,
			}))
			r.Use(middleware.RateLimitUser(rateLimit))

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", transactions.List)
				r.Post("/", transactions.Create)
				r.Get("/{id}", transactions.Get)
				r.Put("/{id}", transactions.Update)
				r.Delete("/{id}", transactions.Delete)
			})

			r.Get("/summary", summaries.Summary)
			r.Get("/report", summaries.Report)
			r.Get("/categories", categories.List)
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
