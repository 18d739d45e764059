// Package statusapi serves the local read-only HTTP API used by status
// tooling. It only accepts connections from loopback addresses.
package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Lintshiwe/LockPort/pkg/pinstore"
	"github.com/Lintshiwe/LockPort/pkg/registry"
)

// Server is the local status API server.
type Server struct {
	reg      *registry.Registry
	pins     *pinstore.Store
	version  string
	started  time.Time
	log      *slog.Logger
	server   *http.Server
	listener net.Listener
}

// NewServer creates a status API server over the shared registry and
// credential store.
func NewServer(reg *registry.Registry, pins *pinstore.Store, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		reg:     reg,
		pins:    pins,
		version: version,
		started: time.Now(),
		log:     log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/devices", s.handleDevices)

	s.server = &http.Server{
		Handler:      s.loggingMiddleware(s.localhostMiddleware(mux)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening on addr. Serving happens on a background goroutine.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.log.Info("status api listening", "addr", listener.Addr().String())

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("status api server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listen address. Valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("status api request",
			"method", r.Method, "path", r.URL.Path,
			"remote", r.RemoteAddr, "duration", time.Since(start))
	})
}

// localhostMiddleware rejects connections that do not come from loopback.
func (s *Server) localhostMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			s.writeError(w, http.StatusForbidden, "invalid remote address")
			return
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			s.log.Warn("rejected non-local status api request", "remote", r.RemoteAddr)
			s.writeError(w, http.StatusForbidden, "status api only accepts connections from localhost")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode status api response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}
