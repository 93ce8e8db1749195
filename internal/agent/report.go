// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package agent

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/venkyr77/jellarr/internal/bootstrap"
	"github.com/venkyr77/jellarr/internal/config"
	"github.com/venkyr77/jellarr/internal/manifest"
	"github.com/venkyr77/jellarr/internal/readiness"
	"github.com/venkyr77/jellarr/internal/reconcile"
	"github.com/venkyr77/jellarr/internal/verify"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailed       = 1
	ExitReadiness    = 2
	ExitBootstrap    = 3
	ExitInvalidInput = 4
)

var (
	// ErrDomainsFailed is returned when at least one domain did not converge.
	ErrDomainsFailed = errors.New("one or more domains failed to converge")

	// ErrRunDeadline is returned when the run deadline passed before the
	// run finished.
	ErrRunDeadline = errors.New("run deadline exceeded")
)

// Run outcomes, used as the metrics label and in the report.
const (
	OutcomeConverged        = "converged"
	OutcomeFailed           = "failed"
	OutcomeNoncompliant     = "noncompliant"
	OutcomeReadinessTimeout = "readiness_timeout"
	OutcomeBootstrapFailed  = "bootstrap_failed"
	OutcomeInvalidInput     = "invalid_input"
	OutcomeDryRun           = "dry_run"
)

// ExitCode maps a Run error to the process exit code. Bootstrap is checked
// before readiness since a bootstrap failure may wrap a readiness timeout.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, manifest.ErrInvalidManifest), errors.Is(err, config.ErrInvalidConfig):
		return ExitInvalidInput
	case errors.Is(err, bootstrap.ErrBootstrapFailed):
		return ExitBootstrap
	case errors.Is(err, readiness.ErrReadinessTimeout):
		return ExitReadiness
	default:
		return ExitFailed
	}
}

func outcomeOf(err error, dryRun bool) string {
	switch ExitCode(err) {
	case ExitOK:
		if dryRun {
			return OutcomeDryRun
		}
		return OutcomeConverged
	case ExitInvalidInput:
		return OutcomeInvalidInput
	case ExitBootstrap:
		return OutcomeBootstrapFailed
	case ExitReadiness:
		return OutcomeReadinessTimeout
	}
	if errors.Is(err, verify.ErrComplianceMismatch) {
		return OutcomeNoncompliant
	}
	return OutcomeFailed
}

// DomainSummary is the outcome of one domain in a Report.
type DomainSummary struct {
	Domain     string   `json:"domain"`
	Status     string   `json:"status"`
	Planned    []string `json:"planned,omitempty"`
	Applied    []string `json:"applied,omitempty"`
	Error      string   `json:"error,omitempty"`
	Mismatches int      `json:"mismatches,omitempty"`
}

// Report is the outcome of one run.
type Report struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	DryRun    bool          `json:"dry_run"`
	Outcome   string        `json:"outcome"`
	ExitCode  int           `json:"exit_code"`
	Error     string        `json:"error,omitempty"`

	// Domains lists every managed domain. When the run stopped on a fatal
	// precondition they are all skipped with that cause. It is empty only
	// when the manifest itself could not be loaded.
	Domains []DomainSummary `json:"domains"`

	Compliance *verify.ComplianceReport `json:"compliance,omitempty"`

	Result reconcile.RunResult `json:"-"`
}

// OK reports whether the run exited cleanly.
func (r Report) OK() bool {
	return r.ExitCode == ExitOK
}

func (r *Report) finish(err error, start time.Time) {
	r.Duration = time.Since(start)
	r.ExitCode = ExitCode(err)
	r.Outcome = outcomeOf(err, r.DryRun)
	if err != nil {
		r.Error = err.Error()
	}
}

func (r *Report) skipAll(desired *manifest.DesiredState, cause error) {
	r.Result = reconcile.SkipAll(r.RunID, desired, cause)
	r.Domains = summarize(r.Result, nil)
}

func summarize(result reconcile.RunResult, compliance *verify.ComplianceReport) []DomainSummary {
	out := make([]DomainSummary, 0, len(result.Domains))
	for _, d := range result.Domains {
		s := DomainSummary{Domain: string(d.Domain), Status: string(d.Status)}
		for _, op := range d.Plan {
			if op.Verb != reconcile.VerbNoop {
				s.Planned = append(s.Planned, op.String())
			}
		}
		for _, op := range d.Applied {
			s.Applied = append(s.Applied, op.String())
		}
		if d.Err != nil {
			s.Error = d.Err.Error()
		}
		if compliance != nil {
			for _, dc := range compliance.Domains {
				if dc.Domain == d.Domain {
					s.Mismatches = len(dc.Mismatches)
				}
			}
		}
		out = append(out, s)
	}
	return out
}

// WriteSummary prints the human summary: what converged, what was attempted
// and failed, and what was skipped because the run stopped.
func (r Report) WriteSummary(w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "jellarr run %s: %s (exit %d) in %s\n", r.RunID, r.Outcome, r.ExitCode, r.Duration.Round(time.Millisecond))
	if r.Error != "" {
		fmt.Fprintf(&b, "  error: %s\n", r.Error)
	}

	groups := []struct {
		title  string
		status reconcile.Status
	}{
		{"converged", reconcile.StatusConverged},
		{"pending (dry run)", reconcile.StatusPending},
		{"attempted but failed", reconcile.StatusFailed},
		{"skipped", reconcile.StatusSkipped},
	}
	for _, g := range groups {
		var lines []string
		for _, d := range r.Domains {
			if d.Status != string(g.status) {
				continue
			}
			line := "    " + d.Domain
			switch {
			case d.Error != "":
				line += ": " + d.Error
			case len(d.Applied) > 0:
				line += fmt.Sprintf(": %d change(s) applied", len(d.Applied))
			case len(d.Planned) > 0 && g.status == reconcile.StatusPending:
				line += fmt.Sprintf(": %d change(s) planned", len(d.Planned))
			}
			lines = append(lines, line)
			if g.status == reconcile.StatusPending {
				for _, p := range d.Planned {
					lines = append(lines, "      "+p)
				}
			}
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s:\n%s\n", g.title, strings.Join(lines, "\n"))
	}

	if r.Compliance != nil {
		if mismatches := r.Compliance.Mismatches(); len(mismatches) > 0 {
			fmt.Fprintf(&b, "  compliance mismatches:\n")
			for _, m := range mismatches {
				fmt.Fprintf(&b, "    %s\n", m)
			}
		}
		if observations := r.Compliance.Observations(); len(observations) > 0 {
			fmt.Fprintf(&b, "  not enforced:\n")
			for _, m := range observations {
				fmt.Fprintf(&b, "    %s\n", m)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
