// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package api

import (
	"net/http"
	"time"
)

type handler struct {
	reports ReportSource
	started time.Time
}

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status        string     `json:"status"`
	Uptime        float64    `json:"uptime_seconds"`
	LastRunID     string     `json:"last_run_id,omitempty"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastOutcome   string     `json:"last_outcome,omitempty"`
	LastExitCode  int        `json:"last_exit_code"`
	LastRunFailed bool       `json:"last_run_failed"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "starting", Uptime: time.Since(h.started).Seconds()}

	report, ok := h.reports.LastReport()
	if !ok {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	at := report.StartedAt
	resp.LastRunID = report.RunID
	resp.LastRunAt = &at
	resp.LastOutcome = report.Outcome
	resp.LastExitCode = report.ExitCode
	resp.LastRunFailed = !report.OK()

	status := http.StatusOK
	resp.Status = "healthy"
	if resp.LastRunFailed {
		status = http.StatusServiceUnavailable
		resp.Status = "degraded"
	}
	respondJSON(w, status, resp)
}

func (h *handler) report(w http.ResponseWriter, r *http.Request) {
	report, ok := h.reports.LastReport()
	if !ok {
		respondError(w, r, http.StatusNotFound, ErrCodeNoReportYet, "No run has finished yet")
		return
	}
	respondJSON(w, http.StatusOK, report)
}
