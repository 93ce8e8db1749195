// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package verify

import (
	"fmt"

	"github.com/venkyr77/jellarr/internal/state"
)

// Mismatch is one managed value that differs from the manifest.
type Mismatch struct {
	Field    string      `json:"field"`
	Expected interface{} `json:"expected"`
	Observed interface{} `json:"observed"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %v, observed %v", m.Field, m.Expected, m.Observed)
}

// DomainCompliance is the verification result of one domain. Err is set
// when the domain could not be checked. Observations are differences the
// reconciler never changes, such as a library's collection type; they do
// not affect compliance.
type DomainCompliance struct {
	Domain       state.Domain `json:"domain"`
	Mismatches   []Mismatch   `json:"mismatches,omitempty"`
	Observations []Mismatch   `json:"observations,omitempty"`
	Err          error        `json:"-"`
}

// Compliant reports whether the domain was checked and matched.
func (d DomainCompliance) Compliant() bool {
	return d.Err == nil && len(d.Mismatches) == 0
}

// ComplianceReport is the verification result of one run.
type ComplianceReport struct {
	RunID   string             `json:"run_id"`
	Domains []DomainCompliance `json:"domains"`
}

// Compliant reports whether every domain matched.
func (r ComplianceReport) Compliant() bool {
	for _, d := range r.Domains {
		if !d.Compliant() {
			return false
		}
	}
	return true
}

// MismatchCount counts mismatches across domains. A domain that could not
// be checked counts as one.
func (r ComplianceReport) MismatchCount() int {
	n := 0
	for _, d := range r.Domains {
		n += len(d.Mismatches)
		if d.Err != nil {
			n++
		}
	}
	return n
}

// Mismatches returns every mismatch in domain order.
func (r ComplianceReport) Mismatches() []Mismatch {
	var out []Mismatch
	for _, d := range r.Domains {
		out = append(out, d.Mismatches...)
	}
	return out
}

// Observations returns every observation in domain order.
func (r ComplianceReport) Observations() []Mismatch {
	var out []Mismatch
	for _, d := range r.Domains {
		out = append(out, d.Observations...)
	}
	return out
}
