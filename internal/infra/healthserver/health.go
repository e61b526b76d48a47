// Package healthserver exposes the daemon's liveness/readiness probes and
// Prometheus metrics endpoint on one HTTP server, adapted from the
// teacher's worker health server: /health always answers 200, /health/ready
// answers 200 only after SetReady(true), which the daemon calls once its
// components are wired, just before the scheduler loop starts, and /metrics serves the process's registered Prometheus collectors.
package healthserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type statusResponse struct {
	Status string `json:"status"`
}

// Server is the daemon's combined health/metrics HTTP endpoint.
type Server struct {
	addr    string
	logger  *slog.Logger
	isReady atomic.Bool
	server  *http.Server
}

// New builds a Server bound to addr (e.g. ":9091"). It starts not ready;
// call SetReady(true) once the daemon is ready to serve.
func New(addr string, logger *slog.Logger) *Server {
	return &Server{addr: addr, logger: logger}
}

// Start runs the server until ctx is cancelled, then shuts it down within a
// 5-second grace period. It is a blocking call; run it in its own goroutine.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleLiveness)
	mux.HandleFunc("/health/ready", s.handleReadiness)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("health/metrics server starting", slog.String("addr", s.addr))
		if err := s.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("health/metrics server shutting down")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("health/metrics server shutdown failed", slog.Any("error", err))
			return err
		}
		return http.ErrServerClosed
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return err
		}
		s.logger.Error("health/metrics server failed", slog.Any("error", err))
		return err
	}
}

// SetReady flips the readiness probe's answer.
func (s *Server) SetReady(ready bool) {
	s.isReady.Store(ready)
	s.logger.Info("readiness changed", slog.Bool("ready", ready))
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(statusResponse{Status: "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.isReady.Load() {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(statusResponse{Status: "ok"})
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = json.NewEncoder(w).Encode(statusResponse{Status: "not ready"})
}
