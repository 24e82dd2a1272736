package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/finledger/finledger/internal/auth"
	"github.com/finledger/finledger/internal/metrics"
	"github.com/finledger/finledger/internal/model"
)

type stubGate struct {
	users map[string]*model.User
}

func (g *stubGate) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if u, ok := g.users[token]; ok {
		return u, nil
	}
	return nil, auth.ErrUnauthorized
}

func TestAuth(t *testing.T) {
	t.Parallel()

	alice := &model.User{ID: "alice-id", Name: "Alice"}
	gate := &stubGate{users: map[string]*model.User{alice.ID: alice}}

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{"bearer token", map[string]string{"Authorization": "Bearer alice-id"}, http.StatusOK},
		{"lowercase bearer", map[string]string{"Authorization": "bearer alice-id"}, http.StatusOK},
		{"user id header", map[string]string{UserIDHeader: "alice-id"}, http.StatusOK},
		{"missing token", nil, http.StatusUnauthorized},
		{"unknown user", map[string]string{"Authorization": "Bearer bob-id"}, http.StatusUnauthorized},
		{"basic scheme ignored", map[string]string{"Authorization": "Basic alice-id"}, http.StatusUnauthorized},
		{"oversized token", map[string]string{UserIDHeader: strings.Repeat("a", MaxTokenLength+1)}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := metrics.NewInMemory()
			var seen *model.User
			handler := Auth(AuthConfig{Gate: gate, Metrics: rec})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = auth.UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			if resp.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.Code, tt.wantStatus)
			}

			snap := rec.Snapshot()
			if tt.wantStatus == http.StatusOK {
				if seen == nil || seen.ID != alice.ID {
					t.Errorf("expected alice in context, got %+v", seen)
				}
				if snap.AuthSuccesses != 1 {
					t.Errorf("auth successes = %d, want 1", snap.AuthSuccesses)
				}
				return
			}

			if snap.AuthFailures != 1 {
				t.Errorf("auth failures = %d, want 1", snap.AuthFailures)
			}
			body := resp.Body.String()
			if !strings.Contains(body, `"code":"UNAUTHORIZED"`) {
				t.Errorf("unexpected body %s", body)
			}
		})
	}
}

func TestAuth_SameBodyForEveryFailure(t *testing.T) {
	t.Parallel()

	handler := Auth(AuthConfig{Gate: &stubGate{}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	var bodies []string
	for _, token := range []string{"", "unknown", strings.Repeat("z", 500)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set(UserIDHeader, token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		bodies = append(bodies, rec.Body.String())
	}

	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Errorf("auth failure bodies differ: %q vs %q", b, bodies[0])
		}
	}
}

func TestExtractToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		authorization string
		userID        string
		want          string
	}{
		{"bearer", "Bearer tok", "", "tok"},
		{"bearer wins over header", "Bearer tok", "other", "tok"},
		{"fallback header", "", "tok", "tok"},
		{"non bearer falls back", "Token abc", "tok", "tok"},
		{"whitespace trimmed", "Bearer  tok ", "", "tok"},
		{"none", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			if tt.userID != "" {
				req.Header.Set(UserIDHeader, tt.userID)
			}
			if got := ExtractToken(req); got != tt.want {
				t.Errorf("ExtractToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  error
	}{
		{"", ErrTokenMissing},
		{strings.Repeat("a", MaxTokenLength+1), ErrTokenTooLong},
		{"has space", ErrTokenInvalid},
		{"tab\there", ErrTokenInvalid},
		{"ünïcode", ErrTokenInvalid},
		{"6f1c0c8e-1b7a-4c43-9d1e-4b2f6e8a9c01", nil},
		{strings.Repeat("a", MaxTokenLength), nil},
	}

	for _, tt := range tests {
		if err := ValidateToken(tt.token); !errors.Is(err, tt.want) {
			t.Errorf("ValidateToken(%q) = %v, want %v", tt.token, err, tt.want)
		}
	}
}
