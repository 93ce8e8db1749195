// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package reconcile

import (
	"fmt"
	"strings"

	"github.com/venkyr77/jellarr/internal/jellyfin"
	"github.com/venkyr77/jellarr/internal/manifest"
	"github.com/venkyr77/jellarr/internal/state"
)

// Verb is what an operation does to its target.
type Verb string

const (
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbNoop   Verb = "noop"
)

// Operation is one planned change. Payload is one of the *Change types in
// this package.
type Operation struct {
	Domain  state.Domain
	Verb    Verb
	Target  string
	Payload interface{}
}

// String renders the operation for plan output. Secrets are never included.
func (o Operation) String() string {
	s := fmt.Sprintf("%s %s %q", o.Verb, o.Domain, o.Target)
	if d, ok := o.Payload.(interface{ Summary() string }); ok {
		if sum := d.Summary(); sum != "" {
			s += ": " + sum
		}
	}
	return s
}

// OperationPlan is the ordered list of operations for one run.
type OperationPlan struct {
	Operations []Operation
}

// ForDomain returns the operations of one domain in plan order.
func (p OperationPlan) ForDomain(d state.Domain) []Operation {
	var ops []Operation
	for _, op := range p.Operations {
		if op.Domain == d {
			ops = append(ops, op)
		}
	}
	return ops
}

// Changes counts operations that are not noops.
func (p OperationPlan) Changes() int {
	n := 0
	for _, op := range p.Operations {
		if op.Verb != VerbNoop {
			n++
		}
	}
	return n
}

// SettingsChange is the merged record to post for a settings domain.
type SettingsChange struct {
	Record  jellyfin.Record
	Changed []string
}

// Summary lists the changed fields.
func (c SettingsChange) Summary() string {
	return strings.Join(c.Changed, ", ")
}

// LibraryChange creates a library or extends its paths. ExtraPaths and
// TypeDrift are reported, never acted on.
type LibraryChange struct {
	Name           string
	CollectionType string
	Paths          []string
	AddPaths       []string
	ExtraPaths     []string
	TypeDrift      string
}

// Summary describes the path changes.
func (c LibraryChange) Summary() string {
	var parts []string
	if len(c.Paths) > 0 {
		parts = append(parts, fmt.Sprintf("type=%s paths=[%s]", c.CollectionType, strings.Join(c.Paths, " ")))
	}
	if len(c.AddPaths) > 0 {
		parts = append(parts, fmt.Sprintf("add paths=[%s]", strings.Join(c.AddPaths, " ")))
	}
	if len(c.ExtraPaths) > 0 {
		parts = append(parts, fmt.Sprintf("unmanaged paths=[%s]", strings.Join(c.ExtraPaths, " ")))
	}
	if c.TypeDrift != "" {
		parts = append(parts, fmt.Sprintf("server type=%s", c.TypeDrift))
	}
	return strings.Join(parts, "; ")
}

// UserChange creates a user or rewrites its policy. The password is only
// sent on create and is not exported so plans can be printed or encoded.
type UserChange struct {
	Name   string
	ID     string
	Fields []manifest.Field

	// Policy is the merged policy for an existing user. For a new user it
	// is built from the policy returned by the create call.
	Policy jellyfin.Record

	password string
}

// Summary lists the policy fields being applied.
func (c UserChange) Summary() string {
	names := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		names = append(names, f.Name())
	}
	return strings.Join(names, ", ")
}

// PluginChange installs a plugin or rewrites its configuration.
type PluginChange struct {
	Name    string
	ID      string
	Record  jellyfin.Record
	Changed []string
}

// Summary lists the changed configuration keys.
func (c PluginChange) Summary() string {
	return strings.Join(c.Changed, ", ")
}

// StartupChange completes the first-run wizard.
type StartupChange struct{}
