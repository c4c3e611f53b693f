// Package server exposes the corrector over HTTP: synchronous
// corrections with a result cache, background jobs with websocket
// progress, health and Prometheus metrics.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"gcode-corrector/pkg/cache"
	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/errors"
	"gcode-corrector/pkg/log"
	"gcode-corrector/pkg/metrics"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":7130"

// Config holds server configuration.
type Config struct {
	// Addr to listen on (e.g. ":7130")
	Addr string

	// Options are the defaults each request may override.
	Options corrector.Options

	// Cache stores synchronous results. Nil uses an in-memory LRU.
	Cache cache.Cache

	// Metrics receives run, job and request metrics. Nil uses the
	// process-wide collectors.
	Metrics *metrics.CorrectorMetrics

	// MaxBodyBytes bounds uploaded G-code.
	MaxBodyBytes int64

	// HistoryLimit bounds the number of job records kept.
	HistoryLimit int
}

// Server serves the correction API.
type Server struct {
	opts    corrector.Options
	cache   cache.Cache
	metrics *metrics.CorrectorMetrics
	history *History
	maxBody int64
	log     *log.Logger

	router     chi.Router
	wsUpgrader websocket.Upgrader

	httpServer *http.Server
	addr       string
	addrMu     sync.RWMutex

	// jobs is canceled on Shutdown to stop background runs.
	jobs       context.Context
	cancelJobs context.CancelFunc
	wg         sync.WaitGroup

	running   atomic.Bool
	startTime time.Time
}

// New creates a server. It does not listen until Start or Serve.
func New(cfg Config) (*Server, error) {
	if err := cfg.Options.Validate(); err != nil {
		return nil, err
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemory(0)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.GlobalMetrics()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 256 << 20
	}

	jobs, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:       cfg.Options,
		cache:      cfg.Cache,
		metrics:    cfg.Metrics,
		history:    NewHistory(cfg.HistoryLimit),
		maxBody:    cfg.MaxBodyBytes,
		log:        log.GetLogger("server"),
		addr:       cfg.Addr,
		jobs:       jobs,
		cancelJobs: cancel,
		startTime:  time.Now(),
	}
	s.wsUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/correct", s.handleCorrect)
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleJobCreate)
			r.Get("/", s.handleJobList)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleJobStatus)
				r.Delete("/", s.handleJobDelete)
				r.Get("/result", s.handleJobResult)
				r.Get("/ws", s.handleJobWebSocket)
			})
		})
	})
	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// History returns the job history.
func (s *Server) History() *History {
	return s.history
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.addrMu.Lock()
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.addrMu.Unlock()

	s.running.Store(true)
	s.log.WithField("addr", ln.Addr().String()).Info("listening")
	err := srv.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Addr returns the listen address, resolved once serving.
func (s *Server) Addr() string {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.addr
}

// Shutdown stops accepting requests, cancels running jobs and waits for
// them to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	s.cancelJobs()

	var err error
	s.addrMu.RLock()
	srv := s.httpServer
	s.addrMu.RUnlock()
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Ready reports whether the server is accepting work.
func (s *Server) Ready() error {
	switch {
	case s.jobs.Err() != nil:
		return errors.RunError("shutting down")
	case !s.running.Load():
		return errors.RunError("not listening")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

// metricsMiddleware records every request under its route pattern so
// job ids do not create new series.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		s.metrics.RecordHTTP(route, r.Method, code, time.Since(began))
		s.log.WithFields(log.Fields{
			"method": r.Method,
			"route":  route,
			"code":   code,
		}).Debug("request")
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Expose-Headers", "X-Corrector-Lines, X-Corrector-Corrected, X-Corrector-Extrusion-Removed, X-Corrector-Cache")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// JSON response helpers

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	body := map[string]any{"message": err.Error()}
	if he, ok := errors.As(err); ok {
		body["code"] = string(he.Code)
	}
	writeJSON(w, code, map[string]any{"error": body})
}

// statusFor maps error codes to HTTP statuses.
func statusFor(err error) int {
	he, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch {
	case he.Code == errors.ErrJobNotFound:
		return http.StatusNotFound
	case errors.IsConfig(err):
		return http.StatusBadRequest
	case he.Code == errors.ErrIORead:
		return http.StatusBadRequest
	case he.Code == errors.ErrRunCanceled:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
