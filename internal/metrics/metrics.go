// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run Metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellarr_runs_total",
			Help: "Total number of reconciliation runs by outcome",
		},
		[]string{"outcome"}, // "converged", "failed", "readiness_timeout", "bootstrap_failed", "noncompliant"
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jellarr_run_duration_seconds",
			Help:    "Duration of a full reconciliation run in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	LastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jellarr_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed run",
		},
	)

	LastRunSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jellarr_last_run_success",
			Help: "1 if the last run converged and verified, 0 otherwise",
		},
	)

	// Domain Metrics
	DomainOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellarr_domain_outcomes_total",
			Help: "Per-domain reconciliation outcomes",
		},
		[]string{"domain", "status"},
	)

	DomainOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellarr_domain_operations_total",
			Help: "Planned operations per domain and verb",
		},
		[]string{"domain", "verb"},
	)

	ComplianceMismatches = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jellarr_compliance_mismatches",
			Help: "Mismatches reported by the last verification, per domain",
		},
		[]string{"domain"},
	)

	// Jellyfin API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellarr_api_requests_total",
			Help: "Total number of Jellyfin API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jellarr_api_request_duration_seconds",
			Help:    "Jellyfin API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Readiness Metrics
	ProbeAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellarr_probe_attempts_total",
			Help: "Readiness probe attempts by level and result",
		},
		[]string{"level", "result"}, // level: "process", "auth"; result: "ready", "not_ready"
	)

	// Bootstrap Metrics
	BootstrapTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellarr_bootstrap_total",
			Help: "Credential bootstrap attempts by result",
		},
		[]string{"result"}, // "skipped", "inserted", "existing", "failed"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jellarr_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellarr_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jellarr_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records one Jellyfin API call. statusCode 0 means the
// request never got a response.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	APIRequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordProbe records one readiness probe attempt.
func RecordProbe(level string, ready bool) {
	result := "not_ready"
	if ready {
		result = "ready"
	}
	ProbeAttempts.WithLabelValues(level, result).Inc()
}

// RecordDomainOutcome records the final status of one domain in one run.
func RecordDomainOutcome(domain, status string) {
	DomainOutcomes.WithLabelValues(domain, status).Inc()
}

// RecordRun records the outcome and duration of a full run.
func RecordRun(outcome string, duration time.Duration, success bool) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(duration.Seconds())
	LastRunTimestamp.Set(float64(time.Now().Unix()))
	if success {
		LastRunSuccess.Set(1)
	} else {
		LastRunSuccess.Set(0)
	}
}
