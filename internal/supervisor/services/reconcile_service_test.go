// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/venkyr77/jellarr/internal/agent"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) Run(context.Context) (agent.Report, error) {
	n := r.calls.Add(1)
	outcome := agent.OutcomeConverged
	if r.err != nil {
		outcome = agent.OutcomeFailed
	}
	return agent.Report{RunID: string(rune('a' + n)), Outcome: outcome}, r.err
}

func TestNewReconcileService_DefaultInterval(t *testing.T) {
	if svc := NewReconcileService(&countingRunner{}, 0); svc.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", svc.interval)
	}
	if got := NewReconcileService(&countingRunner{}, time.Second).String(); got != "reconciler" {
		t.Errorf("String() = %q", got)
	}
}

func TestReconcileService_RunsImmediately(t *testing.T) {
	runner := &countingRunner{}
	svc := NewReconcileService(runner, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for runner.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if runner.calls.Load() != 1 {
		t.Fatalf("runs = %d, want 1 before the first tick", runner.calls.Load())
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}

func TestReconcileService_FailedRunsDoNotStopLoop(t *testing.T) {
	runner := &countingRunner{err: agent.ErrDomainsFailed}
	svc := NewReconcileService(runner, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if runner.calls.Load() < 3 {
		t.Errorf("runs = %d, want at least 3", runner.calls.Load())
	}
	if svc.Runs() != int64(runner.calls.Load()) {
		t.Errorf("Runs() = %d, runner saw %d", svc.Runs(), runner.calls.Load())
	}
}

func TestReconcileService_CanceledBeforeStart(t *testing.T) {
	runner := &countingRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewReconcileService(runner, time.Millisecond).Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v", err)
	}
	if runner.calls.Load() != 0 {
		t.Errorf("runs = %d, want 0", runner.calls.Load())
	}
}
