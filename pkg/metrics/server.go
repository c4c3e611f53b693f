// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const scrapeRealm = "gcode-corrector metrics"

// ScrapeConfig configures a ScrapeServer.
type ScrapeConfig struct {
	// Addr to listen on, e.g. ":9100".
	Addr string

	// Username and Password enable basic auth on /metrics when either
	// is set.
	Username string
	Password string

	// Ready reports whether the correction service can take work. A nil
	// Ready is always ready.
	Ready func() error
}

// ScrapeServer serves the corrector collectors on their own listener so
// they can be scraped without exposing the correction API
// (serve --metrics-addr).
type ScrapeServer struct {
	srv   *http.Server
	ready func() error

	mu   sync.RWMutex
	addr string
}

// NewScrapeServer builds the listener for m. It does not listen until
// ListenAndServe or Serve.
func NewScrapeServer(m *CorrectorMetrics, cfg ScrapeConfig) *ScrapeServer {
	s := &ScrapeServer{addr: cfg.Addr, ready: cfg.Ready}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "ok")
	})
	r.Get("/readyz", s.handleReady)
	r.Group(func(r chi.Router) {
		if cfg.Username != "" || cfg.Password != "" {
			r.Use(middleware.BasicAuth(scrapeRealm, map[string]string{cfg.Username: cfg.Password}))
		}
		r.Method(http.MethodGet, "/metrics", m.Handler())
		r.Head("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
			w.WriteHeader(http.StatusOK)
		})
	})

	s.srv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return s
}

// Handler returns the router, for tests.
func (s *ScrapeServer) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe listens on the configured address and serves until
// Shutdown.
func (s *ScrapeServer) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts scrapes on ln until Shutdown.
func (s *ScrapeServer) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// Addr returns the listen address, resolved once serving.
func (s *ScrapeServer) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Shutdown stops the listener.
func (s *ScrapeServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *ScrapeServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(); err != nil {
			writeText(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeText(w, http.StatusOK, "ready")
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, _ = fmt.Fprintln(w, msg)
}
