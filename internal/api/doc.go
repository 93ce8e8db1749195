// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

// Package api serves the daemon's status endpoints over HTTP using the Chi
// router.
//
// Routes:
//
//	GET /healthz   health derived from the last run
//	GET /report    the last run report as JSON
//	GET /metrics   Prometheus exposition
//
// Every route is rate limited per client IP with go-chi/httprate and
// carries a request ID. JSON bodies share the APIResponse envelope.
package api
