// Package server exposes the operational HTTP endpoints: liveness, readiness
// and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	DefaultCheckTimeout = 2 * time.Second
	shutdownTimeout     = 10 * time.Second
)

// Check reports whether a dependency is ready
type Check func(ctx context.Context) error

// Config configures the ops server
type Config struct {
	Addr         string
	Logger       *zap.Logger
	Metrics      http.Handler
	Recorder     HTTPRecorder
	Checks       map[string]Check
	CheckTimeout time.Duration
}

type response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Server runs the ops endpoints
type Server struct {
	cfg        Config
	httpServer *http.Server
	logger     *zap.Logger
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = DefaultCheckTimeout
	}

	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the chi router for the ops endpoints
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(Logger(s.logger, s.cfg.Recorder))
	r.Use(Recover(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{Status: true, Message: "ok"})
	})
	r.Get("/readyz", s.handleReady)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}

	return r
}

// handleReady runs every check concurrently and reports 503 if any fails
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.CheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.cfg.Checks))
	for name := range s.cfg.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			status := "ok"
			if err := check(ctx); err != nil {
				status = err.Error()
			}
			mu.Lock()
			results[name] = status
			mu.Unlock()
		}(name, s.cfg.Checks[name])
	}
	wg.Wait()

	for _, name := range names {
		if results[name] != "ok" {
			s.logger.Warn("Readiness check failed", zap.String("check", name), zap.String("error", results[name]))
			writeJSON(w, http.StatusServiceUnavailable, response{Status: false, Message: "not ready", Data: results})
			return
		}
	}
	writeJSON(w, http.StatusOK, response{Status: true, Message: "ready", Data: results})
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Ops server listening", zap.String("addr", listener.Addr().String()))
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("ops server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down ops server: %w", err)
	}
	s.logger.Info("Ops server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, code int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
