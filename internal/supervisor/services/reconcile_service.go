// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/venkyr77/jellarr/internal/agent"
	"github.com/venkyr77/jellarr/internal/logging"
)

// Runner performs one reconcile run. *agent.Agent satisfies it.
type Runner interface {
	Run(ctx context.Context) (agent.Report, error)
}

// ReconcileService runs the agent immediately and then once per interval
// until its context is canceled. A failed run is logged and retried on the
// next tick; it never stops the service.
type ReconcileService struct {
	runner   Runner
	interval time.Duration
	runs     atomic.Int64
	name     string
}

// NewReconcileService creates the periodic runner. A non-positive interval
// means one minute.
func NewReconcileService(runner Runner, interval time.Duration) *ReconcileService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReconcileService{
		runner:   runner,
		interval: interval,
		name:     "reconciler",
	}
}

// Serve implements suture.Service.
func (s *ReconcileService) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Msg("Reconcile loop started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *ReconcileService) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.runs.Add(1)
	report, err := s.runner.Run(ctx)
	if err != nil {
		logging.Warn().Err(err).
			Str("run_id", report.RunID).
			Str("outcome", report.Outcome).
			Dur("next_in", s.interval).
			Msg("Reconcile run did not converge")
	}
}

// Runs returns how many runs have been started.
func (s *ReconcileService) Runs() int64 {
	return s.runs.Load()
}

func (s *ReconcileService) String() string {
	return s.name
}
