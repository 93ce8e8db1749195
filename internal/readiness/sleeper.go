// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package readiness

import (
	"context"
	"sync"
	"time"
)

// Sleeper abstracts the wait between attempts so tests can account for
// elapsed time without really waiting.
type Sleeper interface {
	// Sleep waits for d or until ctx is done, whichever comes first.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper waits on the wall clock.
type RealSleeper struct{}

// Sleep implements Sleeper.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeSleeper returns immediately and accumulates the requested durations.
type FakeSleeper struct {
	mu      sync.Mutex
	elapsed time.Duration
	calls   int
}

// Sleep implements Sleeper.
func (f *FakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elapsed += d
	f.calls++
	return nil
}

// Elapsed returns the total simulated sleep.
func (f *FakeSleeper) Elapsed() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elapsed
}

// Calls returns how many times Sleep was called.
func (f *FakeSleeper) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
