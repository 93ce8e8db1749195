// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/venkyr77/jellarr/internal/logging"
	"github.com/venkyr77/jellarr/internal/metrics"
)

// ErrReadinessTimeout is returned when a probe budget is exhausted.
var ErrReadinessTimeout = errors.New("readiness timeout")

// Budget bounds one wait: MaxAttempts probes, Interval apart.
type Budget struct {
	MaxAttempts int
	Interval    time.Duration
}

// Total is the time a wait spends sleeping when every attempt fails.
func (b Budget) Total() time.Duration {
	return time.Duration(b.MaxAttempts) * b.Interval
}

// Prober polls a Probe at a fixed interval.
type Prober struct {
	sleeper Sleeper
}

// NewProber creates a Prober. A nil sleeper waits on the wall clock.
func NewProber(sleeper Sleeper) *Prober {
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	return &Prober{sleeper: sleeper}
}

// WaitUntilReachable runs probe until it succeeds or maxAttempts attempts
// have failed. Every failed attempt is followed by one interval of sleep,
// so exhaustion takes maxAttempts*interval. Attempt errors are logged at
// debug and only the last one is reported.
func (p *Prober) WaitUntilReachable(ctx context.Context, probe Probe, maxAttempts int, interval time.Duration) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	level := probe.Level()
	log := logging.Ctx(ctx)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = probe.Check(ctx)
		metrics.RecordProbe(level, lastErr == nil)
		if lastErr == nil {
			log.Info().Str("readiness_level", level).Int("attempt", attempt).Msg("Jellyfin is ready")
			return nil
		}

		log.Debug().Err(lastErr).
			Str("readiness_level", level).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("interval", interval).
			Msg("Readiness probe failed")

		if err := p.sleeper.Sleep(ctx, interval); err != nil {
			return fmt.Errorf("%w: %s probe interrupted after %d attempts: %w", ErrReadinessTimeout, level, attempt, err)
		}
	}

	return fmt.Errorf("%w: %s probe failed %d times at %s intervals: %w",
		ErrReadinessTimeout, level, maxAttempts, interval, lastErr)
}
