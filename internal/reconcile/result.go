// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package reconcile

import (
	"github.com/venkyr77/jellarr/internal/manifest"
	"github.com/venkyr77/jellarr/internal/state"
)

// Status is the outcome of one domain in one run.
type Status string

const (
	StatusConverged Status = "converged"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"

	// StatusPending marks a domain with planned changes in a dry run.
	StatusPending Status = "pending"
)

// DomainResult is what happened to one domain.
type DomainResult struct {
	Domain  state.Domain
	Status  Status
	Plan    []Operation
	Applied []Operation
	Err     error
}

// RunResult collects the domain outcomes of one Reconcile call. Domains the
// manifest does not declare are absent.
type RunResult struct {
	RunID   string
	Plan    OperationPlan
	Domains []DomainResult
}

// SkipAll returns a result with every domain desired declares marked
// skipped because of cause. It is used when the run stops before planning.
func SkipAll(runID string, desired *manifest.DesiredState, cause error) RunResult {
	result := RunResult{RunID: runID}
	for _, d := range state.Domains {
		if !state.Managed(desired, d) {
			continue
		}
		result.Domains = append(result.Domains, DomainResult{Domain: d, Status: StatusSkipped, Err: cause})
	}
	return result
}

// Created returns the create operations that succeeded.
func (r RunResult) Created() []Operation {
	var out []Operation
	for _, d := range r.Domains {
		for _, op := range d.Applied {
			if op.Verb == VerbCreate {
				out = append(out, op)
			}
		}
	}
	return out
}

// Failed returns the domains that failed.
func (r RunResult) Failed() []DomainResult {
	return r.withStatus(StatusFailed)
}

// Skipped returns the domains that were not attempted.
func (r RunResult) Skipped() []DomainResult {
	return r.withStatus(StatusSkipped)
}

// Converged returns the domains that reached the desired state.
func (r RunResult) Converged() []DomainResult {
	return r.withStatus(StatusConverged)
}

// OK reports whether every domain converged.
func (r RunResult) OK() bool {
	for _, d := range r.Domains {
		if d.Status != StatusConverged {
			return false
		}
	}
	return true
}

// Domain returns the result for d.
func (r RunResult) Domain(d state.Domain) (DomainResult, bool) {
	for _, dr := range r.Domains {
		if dr.Domain == d {
			return dr, true
		}
	}
	return DomainResult{}, false
}

func (r RunResult) withStatus(s Status) []DomainResult {
	var out []DomainResult
	for _, d := range r.Domains {
		if d.Status == s {
			out = append(out, d)
		}
	}
	return out
}
