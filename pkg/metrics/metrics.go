// Metrics for the G-code corrector
//
// Defines the Prometheus collectors for correction runs, background jobs,
// the result cache and the HTTP API. Each CorrectorMetrics owns its own
// registry so tests and embedded servers do not share global state.
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gcode-corrector/pkg/corrector"
	"gcode-corrector/pkg/errors"
)

const namespace = "gcode_corrector"

// Run status label values
const (
	StatusOK       = "ok"
	StatusCanceled = "canceled"
	StatusError    = "error"
)

// CorrectorMetrics holds all corrector metrics
type CorrectorMetrics struct {
	// Correction runs
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	LinesTotal       prometheus.Counter
	SegmentsTotal    *prometheus.CounterVec
	ExtrusionRemoved prometheus.Counter

	// Jobs
	JobsActive prometheus.Gauge
	JobsTotal  *prometheus.CounterVec

	// Result cache
	CacheRequests *prometheus.CounterVec

	// HTTP API
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewCorrectorMetrics creates and registers all corrector metrics
func NewCorrectorMetrics() *CorrectorMetrics {
	m := &CorrectorMetrics{registry: prometheus.NewRegistry()}

	m.RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Correction runs by final status.",
	}, []string{"status"})
	m.RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of successful correction runs.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
	m.LinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lines_total",
		Help:      "Input lines processed.",
	})
	m.SegmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "segments_total",
		Help:      "Extruding moves seen, by outcome.",
	}, []string{"outcome"})
	m.ExtrusionRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extrusion_removed_total",
		Help:      "Filament removed at corners, in E units.",
	})

	m.JobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "jobs_active",
		Help:      "Background jobs currently running.",
	})
	m.JobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_total",
		Help:      "Background jobs by final status.",
	}, []string{"status"})

	m.CacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Result cache lookups by result.",
	}, []string{"result"})

	m.HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "code"})
	m.HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	m.registry.MustRegister(
		m.RunsTotal, m.RunDuration, m.LinesTotal, m.SegmentsTotal, m.ExtrusionRemoved,
		m.JobsActive, m.JobsTotal,
		m.CacheRequests,
		m.HTTPRequests, m.HTTPDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Expose every outcome from the start so rates work before the first
	// occurrence.
	for _, o := range corrector.Outcomes() {
		if o == corrector.OutcomeNotCommand || o == corrector.OutcomeNotExtruding {
			continue
		}
		m.SegmentsTotal.WithLabelValues(o.String())
	}
	return m
}

// StatusOf maps a run error to a status label.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, errors.ErrRunCanceled):
		return StatusCanceled
	default:
		return StatusError
	}
}

// ObserveRun records the outcome of a correction run.
func (m *CorrectorMetrics) ObserveRun(res *corrector.Result, err error) {
	m.RunsTotal.WithLabelValues(StatusOf(err)).Inc()
	if err != nil || res == nil {
		return
	}
	s := res.Stats
	m.RunDuration.Observe(s.Duration.Seconds())
	m.LinesTotal.Add(float64(s.Lines))
	m.ExtrusionRemoved.Add(s.ExtrusionRemoved)
	if s.Corrected > 0 {
		m.SegmentsTotal.WithLabelValues(corrector.OutcomeCorrected.String()).Add(float64(s.Corrected))
	}
	for o, n := range s.Skipped {
		m.SegmentsTotal.WithLabelValues(o.String()).Add(float64(n))
	}
}

// JobStarted marks a background job as running.
func (m *CorrectorMetrics) JobStarted() {
	m.JobsActive.Inc()
}

// JobFinished marks a background job as done with the given status.
func (m *CorrectorMetrics) JobFinished(status string) {
	m.JobsActive.Dec()
	m.JobsTotal.WithLabelValues(status).Inc()
}

// RecordCache records a cache lookup.
func (m *CorrectorMetrics) RecordCache(hit bool) {
	if hit {
		m.CacheRequests.WithLabelValues("hit").Inc()
		return
	}
	m.CacheRequests.WithLabelValues("miss").Inc()
}

// RecordHTTP records one served request.
func (m *CorrectorMetrics) RecordHTTP(route, method string, code int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry
func (m *CorrectorMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *CorrectorMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Global metrics instance
var (
	globalMetrics *CorrectorMetrics
	globalOnce    sync.Once
)

// GlobalMetrics returns the process-wide metrics instance
func GlobalMetrics() *CorrectorMetrics {
	globalOnce.Do(func() {
		globalMetrics = NewCorrectorMetrics()
	})
	return globalMetrics
}
