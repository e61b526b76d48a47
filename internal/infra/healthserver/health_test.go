package healthserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"
)

func newTestServer(addr string) *Server {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return New(addr, logger)
}

func getJSON(t *testing.T, url string) (int, statusResponse) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return resp.StatusCode, body
}

func TestServer_LivenessAlwaysOK(t *testing.T) {
	s := newTestServer("localhost:19191")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	code, body := getJSON(t, "http://localhost:19191/health")
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("got %d/%q, want 200/ok", code, body.Status)
	}
}

func TestServer_ReadinessReflectsSetReady(t *testing.T) {
	s := newTestServer("localhost:19192")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	code, body := getJSON(t, "http://localhost:19192/health/ready")
	if code != http.StatusServiceUnavailable || body.Status != "not ready" {
		t.Errorf("before ready: got %d/%q, want 503/not ready", code, body.Status)
	}

	s.SetReady(true)
	code, body = getJSON(t, "http://localhost:19192/health/ready")
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("after ready: got %d/%q, want 200/ok", code, body.Status)
	}

	s.SetReady(false)
	code, _ = getJSON(t, "http://localhost:19192/health/ready")
	if code != http.StatusServiceUnavailable {
		t.Errorf("after unready: got %d, want 503", code)
	}
}

func TestServer_MetricsEndpointServesPrometheusFormat(t *testing.T) {
	s := newTestServer("localhost:19193")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Get("http://localhost:19193/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("got status %d, want 200", resp.StatusCode)
	}
}

func TestServer_GracefulShutdown(t *testing.T) {
	s := newTestServer("localhost:19194")
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			t.Errorf("got %v, want http.ErrServerClosed", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("shutdown did not complete in time")
	}

	if _, err := http.Get("http://localhost:19194/health"); err == nil {
		t.Error("expected connection error after shutdown")
	}
}
