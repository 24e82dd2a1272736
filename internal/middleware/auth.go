package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/finledger/finledger/internal/auth"
	"github.com/finledger/finledger/internal/metrics"
	"github.com/finledger/finledger/internal/model"
)

// Authenticator resolves a token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Gate    Authenticator
	Metrics metrics.Recorder
}

// Auth returns a middleware that authenticates ledger requests and
// attaches the user to the request context.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if err := ValidateToken(token); err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", err.Error()),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				cfg.Metrics.IncAuthFailure()
				writeAuthError(w)
				return
			}

			user, err := cfg.Gate.Authenticate(r.Context(), token)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "unknown_user"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				cfg.Metrics.IncAuthFailure()
				writeAuthError(w)
				return
			}

			cfg.Metrics.IncAuthSuccess()
			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", user.ID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes the same 401 for every failure to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing user token")
}
