package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestSign(t *testing.T) {
	t.Parallel()

	body := []byte(`{"id":"01HX","kind":"transaction.created"}`)
	sig := Sign("whsec_test", 1736600000, body)

	if len(sig) != 64 {
		t.Errorf("signature length = %d, want 64", len(sig))
	}
	if sig != Sign("whsec_test", 1736600000, body) {
		t.Error("signature is not deterministic")
	}
	if sig == Sign("whsec_test", 1736600001, body) {
		t.Error("different timestamp should produce different signature")
	}
	if sig == Sign("whsec_other", 1736600000, body) {
		t.Error("different secret should produce different signature")
	}
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	body := []byte(`{}`)
	now := time.Now().Unix()

	tests := []struct {
		name      string
		signature string
		timestamp int64
		want      error
	}{
		{"valid", Sign("s", now, body), now, nil},
		{"tampered", Sign("s", now, []byte(`{"x":1}`)), now, ErrInvalidSignature},
		{"wrong secret", Sign("t", now, body), now, ErrInvalidSignature},
		{"too old", Sign("s", now-600, body), now - 600, ErrReplayWindowExceeded},
		{"too far ahead", Sign("s", now+600, body), now + 600, ErrReplayWindowExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature("s", tt.signature, tt.timestamp, body, DefaultReplayWindow)
			if !errors.Is(err, tt.want) {
				t.Errorf("VerifySignature() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWebhookPublisher_DeliversSignedEvent(t *testing.T) {
	t.Parallel()

	event := New(KindTransactionCreated, "user-1", "tx-1")
	errc := make(chan error, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
		if err != nil {
			errc <- err
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := VerifySignature("secret", r.Header.Get(HeaderSignature), ts, body, DefaultReplayWindow); err != nil {
			errc <- err
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var got Event
		if err := json.Unmarshal(body, &got); err != nil {
			errc <- err
		} else if got.ID != event.ID || r.Header.Get(HeaderEventKind) != string(event.Kind) {
			errc <- errors.New("unexpected event " + got.ID)
		} else {
			errc <- nil
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pub := NewWebhookPublisher(srv.URL, "secret")
	defer pub.Close()

	if err := pub.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := <-errc; err != nil {
		t.Fatalf("receiver: %v", err)
	}
}

func TestWebhookPublisher_RetryPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		statuses     []int
		wantErr      bool
		wantRequests int32
	}{
		{"retries server errors", []int{500, 503, 200}, false, 3},
		{"retries throttling", []int{429, 200}, false, 2},
		{"no retry on client error", []int{400}, true, 1},
		{"gives up", []int{500, 500, 500, 500, 500}, true, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(calls.Add(1)) - 1
				if n >= len(tt.statuses) {
					n = len(tt.statuses) - 1
				}
				w.WriteHeader(tt.statuses[n])
			}))
			defer srv.Close()

			pub := NewWebhookPublisher(srv.URL, "")
			err := pub.Publish(context.Background(), New(KindTransactionDeleted, "u", "t"))

			if (err != nil) != tt.wantErr {
				t.Errorf("Publish() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != tt.wantRequests {
				t.Errorf("requests = %d, want %d", got, tt.wantRequests)
			}
		})
	}
}

func TestWebhookPublisher_StopsOnContextDeadline(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewWebhookPublisher(srv.URL, "").Publish(ctx, New(KindTransactionUpdated, "u", "t"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Publish() = %v, want deadline exceeded", err)
	}
}
