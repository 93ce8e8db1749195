// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kardianos/service"
)

// ServiceController starts and stops the media server process.
type ServiceController interface {
	Stop(ctx context.Context) error
	Start(ctx context.Context) error
}

// statusPollInterval is how often SystemServiceController re-reads the
// service status while waiting for a stop to take effect.
const statusPollInterval = 500 * time.Millisecond

// SystemServiceController drives an installed system service (a systemd
// unit on Linux) by name.
type SystemServiceController struct {
	name string
	svc  service.Service
}

var _ ServiceController = (*SystemServiceController)(nil)

// externalProgram satisfies service.Interface for a service this process
// controls but does not implement.
type externalProgram struct{}

func (externalProgram) Start(service.Service) error { return nil }
func (externalProgram) Stop(service.Service) error  { return nil }

// NewSystemServiceController binds to the service called name.
func NewSystemServiceController(name string) (*SystemServiceController, error) {
	svc, err := service.New(externalProgram{}, &service.Config{Name: name})
	if err != nil {
		return nil, fmt.Errorf("bind service %q: %w", name, err)
	}
	return &SystemServiceController{name: name, svc: svc}, nil
}

// Stop stops the service and waits until it reports stopped.
func (c *SystemServiceController) Stop(ctx context.Context) error {
	status, err := c.svc.Status()
	if err != nil {
		return fmt.Errorf("status of %q: %w", c.name, err)
	}
	if status == service.StatusStopped {
		return nil
	}

	if err := c.svc.Stop(); err != nil {
		return fmt.Errorf("stop %q: %w", c.name, err)
	}
	return c.waitFor(ctx, service.StatusStopped)
}

// Start starts the service. Readiness is the caller's concern.
func (c *SystemServiceController) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.svc.Start(); err != nil {
		return fmt.Errorf("start %q: %w", c.name, err)
	}
	return nil
}

func (c *SystemServiceController) waitFor(ctx context.Context, want service.Status) error {
	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	for {
		status, err := c.svc.Status()
		if err == nil && status == want {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %q to stop: %w", c.name, ctx.Err())
		case <-ticker.C:
		}
	}
}
