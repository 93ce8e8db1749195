// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package metrics provides the Prometheus instrumentation for jellarr.

Metrics are registered on the default registry at package init through
promauto. In daemon mode they are served at /metrics by the status router;
in one-shot mode they are collected but not exported.

# Available Metrics

Runs:
  - jellarr_runs_total{outcome}
  - jellarr_run_duration_seconds
  - jellarr_last_run_timestamp_seconds, jellarr_last_run_success

Domains:
  - jellarr_domain_outcomes_total{domain,status}
  - jellarr_domain_operations_total{domain,verb}
  - jellarr_compliance_mismatches{domain}

Jellyfin API:
  - jellarr_api_requests_total{method,endpoint,status_code}
  - jellarr_api_request_duration_seconds{method,endpoint}
  - jellarr_circuit_breaker_state{name}
  - jellarr_circuit_breaker_requests_total{name,result}
  - jellarr_circuit_breaker_state_transitions_total{name,from_state,to_state}

Readiness and bootstrap:
  - jellarr_probe_attempts_total{level,result}
  - jellarr_bootstrap_total{result}

Endpoint labels are route templates such as /Users/{id}/Policy, never raw
paths, to keep cardinality bounded.
*/
package metrics
