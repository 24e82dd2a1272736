package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockHealthChecker is a mock implementation of HealthChecker for testing.
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.err
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestHealthHandler_Healthz(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if resp := decodeHealth(t, rec); resp.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", resp.Status)
	}
}

func TestHealthHandler_Readyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		store      HealthChecker
		cache      HealthChecker
		wantStatus int
		wantStore  string
		wantRedis  string
	}{
		{"all healthy", &mockHealthChecker{}, &mockHealthChecker{}, http.StatusOK, "ok", "ok"},
		{"redis optional", &mockHealthChecker{}, nil, http.StatusOK, "ok", "not configured"},
		{"store down", &mockHealthChecker{err: errors.New("connection refused")}, &mockHealthChecker{}, http.StatusServiceUnavailable, "error: connection refused", "ok"},
		{"redis down", &mockHealthChecker{}, &mockHealthChecker{err: errors.New("timeout")}, http.StatusServiceUnavailable, "ok", "error: timeout"},
		{"no store", nil, nil, http.StatusServiceUnavailable, "not configured", "not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthHandler(tt.store, tt.cache)
			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeHealth(t, rec)
			if resp.Checks["store"] != tt.wantStore {
				t.Errorf("store check = %q, want %q", resp.Checks["store"], tt.wantStore)
			}
			if resp.Checks["redis"] != tt.wantRedis {
				t.Errorf("redis check = %q, want %q", resp.Checks["redis"], tt.wantRedis)
			}
		})
	}
}
