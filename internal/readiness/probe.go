// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package readiness

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/venkyr77/jellarr/internal/jellyfin"
)

// Probe levels.
const (
	LevelProcess = "process"
	LevelAuth    = "auth"
)

// Endpoint is the transport a probe runs against. *jellyfin.Client
// satisfies it.
type Endpoint interface {
	Probe(ctx context.Context, path string, authenticated bool) (int, []byte, error)
}

var _ Endpoint = (*jellyfin.Client)(nil)

// Probe is one readiness check. Check returns nil when the server is ready
// at this level.
type Probe interface {
	Level() string
	Check(ctx context.Context) error
}

// ProcessProbe asks the unauthenticated public info endpoint. Any
// well-formed JSON answer counts, whatever the status: the server binds its
// port before it can produce one.
type ProcessProbe struct {
	Endpoint Endpoint
}

// Level implements Probe.
func (p ProcessProbe) Level() string { return LevelProcess }

// Check implements Probe.
func (p ProcessProbe) Check(ctx context.Context) error {
	status, body, err := p.Endpoint.Probe(ctx, jellyfin.PathPublicSystemInfo, false)
	if err != nil {
		return err
	}
	if len(body) == 0 || !json.Valid(body) {
		return fmt.Errorf("%s answered %d without a JSON body", jellyfin.PathPublicSystemInfo, status)
	}
	return nil
}

// AuthProbe asks an endpoint that requires the API key and accepts only a
// 2xx answer.
type AuthProbe struct {
	Endpoint Endpoint
}

// Level implements Probe.
func (p AuthProbe) Level() string { return LevelAuth }

// Check implements Probe.
func (p AuthProbe) Check(ctx context.Context) error {
	status, _, err := p.Endpoint.Probe(ctx, jellyfin.PathSystemConfiguration, true)
	if err != nil {
		return err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return fmt.Errorf("%s answered %d", jellyfin.PathSystemConfiguration, status)
	}
	return nil
}
