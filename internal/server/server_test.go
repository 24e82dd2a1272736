package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestServer_ServeAndShutdownOrder(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(handler, Options{ShutdownTimeout: 5 * time.Second}, logger)

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"store", "redis", "events"} {
		srv.OnShutdown(name, func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"events", "redis", "store"}
	if len(order) != len(want) {
		t.Fatalf("shutdown order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("shutdown order = %v, want %v", order, want)
		}
	}
}

func TestServer_ShutdownErrorStillStopsRest(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(http.NotFoundHandler(), Options{ShutdownTimeout: time.Second}, logger)

	var storeClosed bool
	srv.OnShutdown("store", func(context.Context) error {
		storeClosed = true
		return nil
	})
	srv.OnShutdown("events", func(context.Context) error {
		return errors.New("broker gone")
	})

	err := srv.stopComponents(context.Background())
	if err == nil || err.Error() != "events: broker gone" {
		t.Errorf("stopComponents() = %v, want events error", err)
	}
	if !storeClosed {
		t.Error("store was not closed after an earlier component failed")
	}
}
