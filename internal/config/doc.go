// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package config loads the agent's runtime configuration.

The agent config says how to reach and bootstrap the server and how to run
(one-shot or daemon). What the server should look like lives in the separate
manifest (see internal/manifest).

# Configuration Sources

Values are layered with Koanf v2, later sources winning:

 1. Built-in defaults
 2. YAML file: --agent-config, JELLARR_AGENT_CONFIG, ./jellarr-agent.yaml or
    /etc/jellarr/agent.yaml
 3. Environment variables
 4. Command-line flags

# Environment Variables

Server:
  - JELLARR_API_KEY: API token (required)
  - JELLARR_BASE_URL: overrides the manifest base_url
  - JELLARR_REQUEST_TIMEOUT: per-request timeout (default: 30s)
  - JELLARR_REQUESTS_PER_SECOND: client pacing, 0 disables (default: 20)
  - JELLARR_CONCURRENCY: parallel creates per domain (default: 4)

Manifest:
  - JELLARR_CONFIG: manifest path (default: config.yml)

Bootstrap:
  - JELLARR_BOOTSTRAP: insert the API key into the server database (default: false)
  - JELLARR_BOOTSTRAP_DATABASE: default /var/lib/jellyfin/data/jellyfin.db
  - JELLARR_BOOTSTRAP_SERVICE: default jellyfin
  - JELLARR_BOOTSTRAP_TOKEN_NAME: default jellarr
  - JELLARR_BOOTSTRAP_SETTLE_DELAY: default 3s

Readiness:
  - JELLARR_READINESS_ATTEMPTS: default 30
  - JELLARR_READINESS_INTERVAL: default 2s

Verification and run mode:
  - JELLARR_VERIFY, JELLARR_VERIFY_PASSWORDS
  - JELLARR_INTERVAL: daemon interval, 0 = run once
  - JELLARR_METRICS_ADDR: daemon status listener, e.g. :9464
  - JELLARR_DRY_RUN, JELLARR_RUN_TIMEOUT

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Validation

Load validates with go-playground/validator tags and a few cross-field rules;
every failure wraps ErrInvalidConfig.
*/
package config
