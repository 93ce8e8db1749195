// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/venkyr77/jellarr/internal/agent"
)

// ReportSource returns the most recent run report. *agent.Agent satisfies it.
type ReportSource interface {
	LastReport() (agent.Report, bool)
}

var _ ReportSource = (*agent.Agent)(nil)

// Options configures the status router.
type Options struct {
	Reports ReportSource

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer

	// RateLimitRequests per RateLimitWindow per client IP. Zero disables
	// rate limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// CORSOrigins may read the API from a browser. Empty disables CORS.
	CORSOrigins []string
}

// DefaultOptions returns the limits used in daemon mode.
func DefaultOptions(reports ReportSource) Options {
	return Options{
		Reports:           reports,
		RateLimitRequests: 120,
		RateLimitWindow:   time.Minute,
	}
}

// NewRouter builds the daemon status API:
//
//	GET /healthz  200 while the last run succeeded (or none has finished), else 503
//	GET /report   the last run report
//	GET /metrics  Prometheus metrics
func NewRouter(opts Options) http.Handler {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	h := &handler{reports: opts.Reports, started: time.Now()}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(opts.CORSOrigins))
	r.Use(SecurityHeaders)
	r.Use(RateLimit(opts.RateLimitRequests, opts.RateLimitWindow))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", h.health)
	r.Get("/report", h.report)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}
