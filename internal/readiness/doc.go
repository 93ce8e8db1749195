// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package readiness detects when a Jellyfin server can be configured.

Jellyfin binds its HTTP port well before its database and authentication
subsystem are usable, so a port check gives false positives. Readiness is
therefore established in two levels:

  - process: GET /System/Info/Public answers with well-formed JSON
  - auth: GET /System/Configuration with the API key answers 2xx

Polling uses a fixed interval, not exponential backoff. Failed attempts are
logged at debug and counted; only exhaustion of the attempt budget is
reported, as an error wrapping ErrReadinessTimeout.

Machine ties the two levels together as the states Unstarted, ProcessReady,
AuthReady and Failed, rejecting out-of-order waits with
ErrInvalidTransition.
*/
package readiness
