// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/venkyr77/jellarr/internal/bootstrap"
	"github.com/venkyr77/jellarr/internal/config"
	"github.com/venkyr77/jellarr/internal/jellyfin"
	"github.com/venkyr77/jellarr/internal/logging"
	"github.com/venkyr77/jellarr/internal/manifest"
	"github.com/venkyr77/jellarr/internal/metrics"
	"github.com/venkyr77/jellarr/internal/readiness"
	"github.com/venkyr77/jellarr/internal/reconcile"
	"github.com/venkyr77/jellarr/internal/state"
	"github.com/venkyr77/jellarr/internal/verify"
)

// Options configures an Agent.
type Options struct {
	Config *config.Config

	// Manifest, when set, is used for every run. Otherwise the manifest is
	// loaded from Config.Manifest.Path at the start of each run, so a
	// daemon picks up edits.
	Manifest *manifest.DesiredState

	// Store and Services are used by bootstrap. Nil builds the SQLite store
	// and the system service controller from Config.Bootstrap.
	Store    bootstrap.TokenStore
	Services bootstrap.ServiceController

	// Sleeper paces readiness probes and the bootstrap settle delay. Nil
	// uses the wall clock.
	Sleeper readiness.Sleeper

	// Version is reported to the server.
	Version string
}

// Agent runs the full pipeline against one server: bootstrap or readiness,
// state read, reconcile, verify.
type Agent struct {
	opts Options

	mu   sync.RWMutex
	last *Report
}

// New creates an Agent.
func New(opts Options) *Agent {
	if opts.Sleeper == nil {
		opts.Sleeper = readiness.RealSleeper{}
	}
	return &Agent{opts: opts}
}

// LastReport returns the report of the most recent finished run.
func (a *Agent) LastReport() (Report, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return Report{}, false
	}
	return *a.last, true
}

// Run performs one run under the configured deadline. The error is nil
// only when every managed domain converged and, when verification is on,
// the server matches the manifest. ExitCode maps it to a process exit code.
func (a *Agent) Run(ctx context.Context) (Report, error) {
	cfg := a.opts.Config
	start := time.Now()

	ctx = logging.ContextWithNewRunID(ctx)
	report := Report{RunID: logging.RunIDFromContext(ctx), StartedAt: start, DryRun: cfg.DryRun}

	ctx, cancel := context.WithTimeout(ctx, cfg.EffectiveRunTimeout())
	defer cancel()

	err := a.run(ctx, &report)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ErrRunDeadline) && ExitCode(err) == ExitFailed {
		err = fmt.Errorf("%w: %w", ErrRunDeadline, err)
	}
	report.finish(err, start)
	metrics.RecordRun(report.Outcome, report.Duration, report.OK())

	log := logging.Ctx(ctx)
	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.Str("outcome", report.Outcome).
		Int("exit_code", report.ExitCode).
		Int("converged", len(report.Result.Converged())).
		Int("failed", len(report.Result.Failed())).
		Int("skipped", len(report.Result.Skipped())).
		Dur("duration", report.Duration).
		Msg("Run finished")

	a.mu.Lock()
	a.last = &report
	a.mu.Unlock()
	return report, err
}

func (a *Agent) run(ctx context.Context, report *Report) error {
	cfg := a.opts.Config
	log := logging.Ctx(ctx)

	desired, err := a.desiredState()
	if err != nil {
		return err
	}
	baseURL := cfg.Server.BaseURL
	if baseURL == "" {
		baseURL = desired.BaseURL
	}
	if baseURL == "" {
		return fmt.Errorf("%w: no base URL in agent config or manifest", config.ErrInvalidConfig)
	}

	client := jellyfin.New(jellyfin.Options{
		BaseURL:           baseURL,
		Token:             cfg.Server.APIKey,
		Timeout:           cfg.Server.Timeout,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
		Version:           a.opts.Version,
	})
	log.Info().Str("base_url", baseURL).Bool("dry_run", cfg.DryRun).Msg("Starting run")

	if err := a.awaitServer(ctx, client); err != nil {
		report.skipAll(desired, err)
		return err
	}

	reader := state.NewReader(client)
	actual, err := reader.ReadActualState(ctx, desired)
	if err != nil {
		err = fmt.Errorf("read server state: %w", err)
		report.skipAll(desired, err)
		return err
	}

	result := reconcile.New(reconcile.Options{
		API:         client,
		Concurrency: cfg.Server.Concurrency,
		DryRun:      cfg.DryRun,
	}).Reconcile(ctx, desired, actual)
	report.Result = result

	var runErr error
	if failed := append(result.Failed(), result.Skipped()...); len(failed) > 0 {
		errs := make([]error, 0, len(failed))
		for _, d := range failed {
			if d.Err == nil {
				errs = append(errs, fmt.Errorf("%s: %s", d.Domain, d.Status))
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", d.Domain, d.Err))
		}
		runErr = fmt.Errorf("%w: %w", ErrDomainsFailed, errors.Join(errs...))
	}

	if cfg.Verify.Enabled && !cfg.DryRun && ctx.Err() == nil {
		compliance, err := verify.New(verify.Options{
			Reader:          reader,
			Auth:            client,
			VerifyPasswords: cfg.Verify.Passwords,
		}).Verify(ctx, desired)
		report.Compliance = &compliance
		if err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	report.Domains = summarize(result, report.Compliance)
	return runErr
}

func (a *Agent) desiredState() (*manifest.DesiredState, error) {
	if a.opts.Manifest != nil {
		return a.opts.Manifest, nil
	}
	return manifest.Load(a.opts.Config.Manifest.Path)
}

// awaitServer bootstraps the credential when enabled, which includes both
// readiness waits, or otherwise waits for authenticated readiness.
func (a *Agent) awaitServer(ctx context.Context, client *jellyfin.Client) error {
	cfg := a.opts.Config
	machine := readiness.NewMachine(
		readiness.NewProber(a.opts.Sleeper),
		readiness.ProcessProbe{Endpoint: client},
		readiness.AuthProbe{Endpoint: client},
		readiness.Budget{MaxAttempts: cfg.Readiness.MaxAttempts, Interval: cfg.Readiness.Interval},
	)

	if !cfg.Bootstrap.Enabled {
		return machine.AwaitReady(ctx)
	}

	store, services, err := a.bootstrapDeps()
	if err != nil {
		return fmt.Errorf("%w: %w", bootstrap.ErrBootstrapFailed, err)
	}
	_, err = bootstrap.New(bootstrap.Options{
		Token:       cfg.Server.APIKey,
		TokenName:   cfg.Bootstrap.TokenName,
		SettleDelay: cfg.Bootstrap.SettleDelay,
		Services:    services,
		Store:       store,
		Readiness:   machine,
		AuthCheck:   readiness.AuthProbe{Endpoint: client},
		Sleeper:     a.opts.Sleeper,
	}).EnsureCredential(ctx)
	return err
}

func (a *Agent) bootstrapDeps() (bootstrap.TokenStore, bootstrap.ServiceController, error) {
	store, services := a.opts.Store, a.opts.Services
	if store == nil {
		store = bootstrap.NewSQLiteTokenStore(a.opts.Config.Bootstrap.DatabasePath)
	}
	if services == nil {
		sc, err := bootstrap.NewSystemServiceController(a.opts.Config.Bootstrap.ServiceName)
		if err != nil {
			return nil, nil, err
		}
		services = sc
	}
	return store, services, nil
}
