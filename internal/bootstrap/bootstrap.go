// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/venkyr77/jellarr/internal/logging"
	"github.com/venkyr77/jellarr/internal/metrics"
	"github.com/venkyr77/jellarr/internal/readiness"
)

// ErrBootstrapFailed wraps every failure of EnsureCredential.
var ErrBootstrapFailed = errors.New("credential bootstrap failed")

// Credential is the access token the agent authenticates with.
type Credential struct {
	AccessToken string
}

// String never reveals the token.
func (c Credential) String() string {
	return "Credential{AccessToken:" + logging.Redact(c.AccessToken) + "}"
}

// Options configures a Bootstrapper.
type Options struct {
	// Token is the API key to ensure. It is also the key the client sends.
	Token string

	// TokenName is stored in the ApiKeys Name column.
	TokenName string

	// SettleDelay is waited after starting the service and before probing,
	// so a still-exiting process cannot answer the probe.
	SettleDelay time.Duration

	Services ServiceController
	Store    TokenStore

	// Readiness drives the process and auth waits. It is Reset after the
	// restart.
	Readiness *readiness.Machine

	// AuthCheck is the single-shot probe used to skip bootstrap when the
	// token already works.
	AuthCheck readiness.Probe

	// Sleeper waits out SettleDelay. Nil uses the wall clock.
	Sleeper readiness.Sleeper
}

// Bootstrapper makes sure the server accepts the configured API key,
// writing it into the server's datastore if needed.
type Bootstrapper struct {
	opts Options
}

// New creates a Bootstrapper.
func New(opts Options) *Bootstrapper {
	if opts.Sleeper == nil {
		opts.Sleeper = readiness.RealSleeper{}
	}
	return &Bootstrapper{opts: opts}
}

// EnsureCredential runs the bootstrap procedure:
//
//  1. wait for process readiness
//  2. return early if the token already authenticates
//  3. check the datastore exists
//  4. stop the server
//  5. insert the API key (insert-or-ignore)
//  6. start the server
//  7. wait for process, then authenticated readiness
//
// Every failure wraps ErrBootstrapFailed. Rerunning after a partial failure
// is safe because the insert is idempotent.
func (b *Bootstrapper) EnsureCredential(ctx context.Context) (Credential, error) {
	log := logging.Ctx(ctx)
	cred := Credential{AccessToken: b.opts.Token}
	start := time.Now()

	if err := b.opts.Readiness.AwaitProcess(ctx); err != nil {
		return Credential{}, b.fail("wait for server process", err)
	}

	if b.opts.AuthCheck != nil {
		if err := b.opts.AuthCheck.Check(ctx); err == nil {
			log.Info().Msg("API key already accepted, skipping bootstrap")
			metrics.BootstrapTotal.WithLabelValues("skipped").Inc()
			return cred, nil
		}
	}

	if err := b.opts.Store.Available(ctx); err != nil {
		return Credential{}, b.fail("locate datastore", err)
	}

	log.Info().Msg("Stopping Jellyfin to insert API key")
	if err := b.opts.Services.Stop(ctx); err != nil {
		return Credential{}, b.fail("stop server", err)
	}

	inserted, insertErr := b.opts.Store.InsertAPIKey(ctx, b.opts.Token, b.opts.TokenName)

	// Start even when the insert failed so the server is not left down.
	log.Info().Msg("Starting Jellyfin")
	if err := b.opts.Services.Start(ctx); err != nil {
		return Credential{}, b.fail("start server", errors.Join(insertErr, err))
	}
	if insertErr != nil {
		return Credential{}, b.fail("insert api key", insertErr)
	}

	if err := b.opts.Sleeper.Sleep(ctx, b.opts.SettleDelay); err != nil {
		return Credential{}, b.fail("wait after restart", err)
	}

	if err := b.opts.Readiness.Reset(); err != nil {
		return Credential{}, b.fail("reset readiness", err)
	}
	if err := b.opts.Readiness.AwaitReady(ctx); err != nil {
		return Credential{}, b.fail("wait for server after restart", err)
	}

	result := "existing"
	if inserted {
		result = "inserted"
	}
	metrics.BootstrapTotal.WithLabelValues(result).Inc()
	log.Info().
		Str("result", result).
		Str("token", logging.Redact(b.opts.Token)).
		Str("token_name", b.opts.TokenName).
		Dur("duration", time.Since(start)).
		Msg("Bootstrap complete")

	return cred, nil
}

func (b *Bootstrapper) fail(step string, err error) error {
	metrics.BootstrapTotal.WithLabelValues("failed").Inc()
	return fmt.Errorf("%w: %s: %w", ErrBootstrapFailed, step, err)
}
