// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package jellyfin is the HTTP client for the Jellyfin administrative API.

Every authenticated call goes through Client.Request, which attaches the
X-Emby-Token header and the MediaBrowser Authorization header, paces calls
with a token bucket, and runs them behind a circuit breaker. The client
never retries: a failed call returns an *APIError and the caller decides
what a failure means for its domain.

Key Components:

  - Client: request/response plumbing, Probe for readiness polling
  - Record: configuration objects kept in wire form for read-modify-write
  - APIError: classified failure, matched by errors.Is(err, ErrAPI)
  - Typed endpoints: system, encoding and branding configuration, virtual
    folders, users and policies, plugins, startup wizard

Circuit Breaker:

The breaker opens after five consecutive transport or 5xx failures and
stays open for Options.BreakerTimeout. A 4xx answer counts as a success for
breaker purposes because the server is demonstrably up; the error is still
returned to the caller. Cancelled contexts are excluded from the counts.

Usage Example:

	client := jellyfin.New(jellyfin.Options{
	    BaseURL:           "http://localhost:8096",
	    Token:             apiKey,
	    Timeout:           30 * time.Second,
	    RequestsPerSecond: 20,
	})

	cfg, err := client.GetSystemConfiguration(ctx)
	if err != nil {
	    return err
	}
	cfg["EnableMetrics"] = true
	err = client.UpdateSystemConfiguration(ctx, cfg)

Metrics are recorded per route template (for example /Users/{id}/Policy)
so label cardinality stays bounded.
*/
package jellyfin
