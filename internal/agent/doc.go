// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package agent runs one convergence of a Jellyfin server against a manifest.

A run goes through these phases in order, under one deadline
(config.Config.EffectiveRunTimeout):

 1. load the manifest (unless one was supplied)
 2. bootstrap the API key when enabled, otherwise wait for the server to
    answer at both readiness levels
 3. read the current state of every managed domain
 4. reconcile each domain in the fixed order
 5. verify the server against the manifest when enabled

Failures in phases 1 and 2 stop the run. A domain that fails in phase 4 is
recorded and the remaining domains still run.

# Exit Codes

ExitCode maps the error returned by Run:

	0  every managed domain converged (and verified, when enabled)
	1  a domain failed, the run deadline passed, or verification found mismatches
	2  the server did not become ready
	3  the credential bootstrap failed
	4  the agent config or the manifest is invalid

# Reports

Run returns a Report with one DomainSummary per managed domain.
Report.WriteSummary prints the human summary grouped into converged,
attempted but failed, and skipped. In daemon mode the most recent report is
served as JSON by the status endpoint (see LastReport).
*/
package agent
