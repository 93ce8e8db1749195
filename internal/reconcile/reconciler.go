// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package reconcile

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/venkyr77/jellarr/internal/jellyfin"
	"github.com/venkyr77/jellarr/internal/logging"
	"github.com/venkyr77/jellarr/internal/manifest"
	"github.com/venkyr77/jellarr/internal/metrics"
	"github.com/venkyr77/jellarr/internal/state"
)

const defaultConcurrency = 4

// API is the write side of the Jellyfin client.
type API interface {
	UpdateSystemConfiguration(ctx context.Context, rec jellyfin.Record) error
	UpdateNamedConfiguration(ctx context.Context, section string, rec jellyfin.Record) error
	AddVirtualFolder(ctx context.Context, name, collectionType string, paths []string) error
	AddMediaPath(ctx context.Context, library, path string) error
	CreateUser(ctx context.Context, name, password string) (*jellyfin.User, error)
	GetUser(ctx context.Context, id string) (*jellyfin.User, error)
	UpdateUserPolicy(ctx context.Context, id string, policy jellyfin.Record) error
	InstallPackage(ctx context.Context, name string) error
	UpdatePluginConfiguration(ctx context.Context, id string, rec jellyfin.Record) error
	CompleteStartup(ctx context.Context) error
}

var _ API = (*jellyfin.Client)(nil)

// Options configures a Reconciler.
type Options struct {
	API API

	// Concurrency bounds parallel operations within one domain.
	Concurrency int

	// DryRun plans without executing.
	DryRun bool
}

// Reconciler applies an OperationPlan domain by domain.
type Reconciler struct {
	api         API
	planner     Planner
	concurrency int
	dryRun      bool
}

// New creates a Reconciler.
func New(opts Options) *Reconciler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Reconciler{
		api:         opts.API,
		concurrency: opts.Concurrency,
		dryRun:      opts.DryRun,
	}
}

// Reconcile plans and applies changes for every managed domain in order.
// A failing domain is recorded and the next domain still runs. When ctx is
// done the remaining domains are marked skipped. There are no retries.
func (r *Reconciler) Reconcile(ctx context.Context, desired *manifest.DesiredState, actual *state.ActualState) RunResult {
	plan := r.planner.Plan(desired, actual)
	result := RunResult{RunID: logging.RunIDFromContext(ctx), Plan: plan}

	for _, d := range state.Domains {
		if !state.Managed(desired, d) {
			continue
		}
		dctx := logging.ContextWithDomain(ctx, string(d))
		dr := r.reconcileDomain(dctx, d, plan.ForDomain(d), actual.ReadError(d))
		metrics.RecordDomainOutcome(string(d), string(dr.Status))
		result.Domains = append(result.Domains, dr)
	}
	return result
}

func (r *Reconciler) reconcileDomain(ctx context.Context, d state.Domain, ops []Operation, readErr error) DomainResult {
	dr := DomainResult{Domain: d, Plan: ops}
	log := logging.Ctx(ctx)

	if err := ctx.Err(); err != nil {
		dr.Status = StatusSkipped
		dr.Err = err
		log.Warn().Err(err).Msg("Domain skipped")
		return dr
	}
	if readErr != nil {
		dr.Status = StatusFailed
		dr.Err = fmt.Errorf("read %s: %w", d, readErr)
		log.Error().Err(readErr).Msg("Domain failed: current state could not be read")
		return dr
	}

	for _, op := range ops {
		metrics.DomainOperations.WithLabelValues(string(d), string(op.Verb)).Inc()
		if op.Verb == VerbNoop {
			r.reportNoop(ctx, op)
		}
	}

	pending := changes(ops)
	if len(pending) == 0 {
		dr.Status = StatusConverged
		log.Debug().Msg("Domain already converged")
		return dr
	}
	if r.dryRun {
		dr.Status = StatusPending
		for _, op := range pending {
			log.Info().Str("operation", op.String()).Msg("Planned")
		}
		return dr
	}

	applied, err := r.apply(ctx, pending)
	dr.Applied = applied
	if err != nil {
		dr.Status = StatusFailed
		dr.Err = err
		log.Error().Err(err).Int("applied", len(applied)).Int("planned", len(pending)).Msg("Domain failed")
		return dr
	}
	dr.Status = StatusConverged
	log.Info().Int("applied", len(applied)).Msg("Domain converged")
	return dr
}

// apply runs the operations of one domain. Operations on distinct targets
// are independent and run concurrently; the first failure does not cancel
// the others. Applied operations keep plan order.
func (r *Reconciler) apply(ctx context.Context, ops []Operation) ([]Operation, error) {
	errs := make([]error, len(ops))
	done := make([]bool, len(ops))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i, op := range ops {
		g.Go(func() error {
			if err := r.execute(ctx, op); err != nil {
				errs[i] = fmt.Errorf("%s %q: %w", op.Verb, op.Target, err)
				return nil
			}
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	applied := make([]Operation, 0, len(ops))
	for i, op := range ops {
		if done[i] {
			applied = append(applied, op)
		}
	}
	return applied, errors.Join(errs...)
}

func (r *Reconciler) execute(ctx context.Context, op Operation) error {
	log := logging.Ctx(ctx)
	switch p := op.Payload.(type) {
	case SettingsChange:
		log.Info().Strs("fields", p.Changed).Msg("Updating settings")
		return r.updateSettings(ctx, op.Domain, p.Record)

	case LibraryChange:
		return r.applyLibrary(ctx, op.Verb, p)

	case UserChange:
		return r.applyUser(ctx, op.Verb, p)

	case PluginChange:
		if op.Verb == VerbCreate {
			log.Info().Str("plugin", p.Name).Msg("Installing plugin")
			return r.api.InstallPackage(ctx, p.Name)
		}
		log.Info().Str("plugin", p.Name).Strs("fields", p.Changed).Msg("Updating plugin configuration")
		return r.api.UpdatePluginConfiguration(ctx, p.ID, p.Record)

	case StartupChange:
		log.Info().Msg("Completing startup wizard")
		return r.api.CompleteStartup(ctx)

	default:
		return fmt.Errorf("no executor for %s payload %T", op.Domain, op.Payload)
	}
}

func (r *Reconciler) updateSettings(ctx context.Context, d state.Domain, rec jellyfin.Record) error {
	switch d {
	case state.DomainSystem:
		return r.api.UpdateSystemConfiguration(ctx, rec)
	case state.DomainEncoding:
		return r.api.UpdateNamedConfiguration(ctx, jellyfin.SectionEncoding, rec)
	case state.DomainBranding:
		return r.api.UpdateNamedConfiguration(ctx, jellyfin.SectionBranding, rec)
	default:
		return fmt.Errorf("%s is not a settings domain", d)
	}
}

func (r *Reconciler) applyLibrary(ctx context.Context, verb Verb, c LibraryChange) error {
	log := logging.Ctx(ctx).With().Str("library", c.Name).Logger()
	if verb == VerbCreate {
		log.Info().Str("collection_type", c.CollectionType).Strs("paths", c.Paths).Msg("Creating library")
		return r.api.AddVirtualFolder(ctx, c.Name, c.CollectionType, c.Paths)
	}

	warnLibraryDrift(ctx, c)
	for _, p := range c.AddPaths {
		log.Info().Str("path", p).Msg("Adding library path")
		if err := r.api.AddMediaPath(ctx, c.Name, p); err != nil {
			return fmt.Errorf("add path %s: %w", p, err)
		}
	}
	return nil
}

// applyUser creates a user and then applies its policy, or rewrites the
// policy of an existing user. Passwords of existing users are never sent.
func (r *Reconciler) applyUser(ctx context.Context, verb Verb, c UserChange) error {
	log := logging.Ctx(ctx).With().Str("user", c.Name).Logger()
	if verb != VerbCreate {
		log.Info().Str("fields", c.Summary()).Msg("Updating user policy")
		return r.api.UpdateUserPolicy(ctx, c.ID, c.Policy)
	}

	log.Info().Msg("Creating user")
	user, err := r.api.CreateUser(ctx, c.Name, c.password)
	if err != nil {
		return err
	}
	if len(c.Fields) == 0 {
		return nil
	}

	policy := user.Policy
	if policy == nil {
		full, err := r.api.GetUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("read policy after create: %w", err)
		}
		policy = full.Policy
	}
	log.Info().Str("fields", c.Summary()).Msg("Applying user policy")
	if err := r.api.UpdateUserPolicy(ctx, user.ID, merge(policy, c.Fields)); err != nil {
		return fmt.Errorf("apply policy after create: %w", err)
	}
	return nil
}

func (r *Reconciler) reportNoop(ctx context.Context, op Operation) {
	if c, ok := op.Payload.(LibraryChange); ok {
		warnLibraryDrift(ctx, c)
	}
}

func warnLibraryDrift(ctx context.Context, c LibraryChange) {
	log := logging.Ctx(ctx)
	if len(c.ExtraPaths) > 0 {
		log.Warn().Str("library", c.Name).Strs("paths", c.ExtraPaths).Msg("Library has paths not in the manifest; leaving them in place")
	}
	if c.TypeDrift != "" {
		log.Warn().Str("library", c.Name).Str("server_type", c.TypeDrift).Msg("Library collection type differs from the manifest; not changed")
	}
}

func changes(ops []Operation) []Operation {
	var out []Operation
	for _, op := range ops {
		if op.Verb != VerbNoop {
			out = append(out, op)
		}
	}
	return out
}
