// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package reconcile

import (
	"github.com/venkyr77/jellarr/internal/jellyfin"
	"github.com/venkyr77/jellarr/internal/manifest"
	"github.com/venkyr77/jellarr/internal/state"
)

// Planner computes the minimal operations that move actual toward desired.
// It performs no I/O.
type Planner struct{}

// Plan returns operations for every managed domain whose read succeeded, in
// domain order. Domains with nothing to do get one noop per target so the
// plan shows what was checked.
func (Planner) Plan(desired *manifest.DesiredState, actual *state.ActualState) OperationPlan {
	var plan OperationPlan
	for _, d := range state.Domains {
		if !state.Managed(desired, d) || actual.ReadError(d) != nil {
			continue
		}
		plan.Operations = append(plan.Operations, planDomain(d, desired, actual)...)
	}
	return plan
}

func planDomain(d state.Domain, desired *manifest.DesiredState, actual *state.ActualState) []Operation {
	switch d {
	case state.DomainSystem, state.DomainEncoding, state.DomainBranding:
		return []Operation{planSettings(d, state.DesiredFields(desired, d), actual.Record(d))}
	case state.DomainLibraries:
		return planLibraries(desired.Libraries, actual)
	case state.DomainUsers:
		return planUsers(desired.Users, actual)
	case state.DomainPlugins:
		return planPlugins(desired.Plugins, actual)
	case state.DomainStartup:
		return planStartup(desired.Startup, actual)
	default:
		return nil
	}
}

// merge applies every managed field onto a copy of rec. Keys the manifest
// does not name are carried over unchanged.
func merge(rec jellyfin.Record, fields []manifest.Field) jellyfin.Record {
	out := rec.Clone()
	if out == nil {
		out = jellyfin.Record{}
	}
	for _, f := range fields {
		out.Set(f.Path, f.Value)
	}
	return out
}

func driftNames(drift []state.FieldDrift) []string {
	names := make([]string, 0, len(drift))
	for _, d := range drift {
		names = append(names, d.Field.Name())
	}
	return names
}

func planSettings(d state.Domain, fields []manifest.Field, rec jellyfin.Record) Operation {
	drift := state.Drift(rec, fields)
	if len(drift) == 0 {
		return Operation{Domain: d, Verb: VerbNoop, Target: string(d)}
	}
	return Operation{
		Domain: d,
		Verb:   VerbUpdate,
		Target: string(d),
		Payload: SettingsChange{
			Record:  merge(rec, fields),
			Changed: driftNames(drift),
		},
	}
}

func planLibraries(defs []manifest.LibraryDef, actual *state.ActualState) []Operation {
	ops := make([]Operation, 0, len(defs))
	for _, def := range defs {
		existing, ok := actual.Library(def.Name)
		if !ok {
			ops = append(ops, Operation{
				Domain: state.DomainLibraries,
				Verb:   VerbCreate,
				Target: def.Name,
				Payload: LibraryChange{
					Name:           def.Name,
					CollectionType: def.CollectionType,
					Paths:          def.Paths,
				},
			})
			continue
		}

		change := LibraryChange{
			Name:       def.Name,
			AddPaths:   state.MissingPaths(existing.Paths, def.Paths),
			ExtraPaths: state.ExtraPaths(existing.Paths, def.Paths),
		}
		if state.CollectionTypeDrifted(existing.CollectionType, def.CollectionType) {
			change.TypeDrift = existing.CollectionType
		}

		verb := VerbNoop
		if len(change.AddPaths) > 0 {
			verb = VerbUpdate
		}
		ops = append(ops, Operation{Domain: state.DomainLibraries, Verb: verb, Target: def.Name, Payload: change})
	}
	return ops
}

func planUsers(defs []manifest.UserDef, actual *state.ActualState) []Operation {
	ops := make([]Operation, 0, len(defs))
	for _, def := range defs {
		fields := def.Policy.Fields()
		existing, ok := actual.User(def.Name)
		if !ok {
			ops = append(ops, Operation{
				Domain: state.DomainUsers,
				Verb:   VerbCreate,
				Target: def.Name,
				Payload: UserChange{
					Name:     def.Name,
					Fields:   fields,
					password: def.Password,
				},
			})
			continue
		}

		drift := state.Drift(existing.Policy, fields)
		if len(drift) == 0 {
			ops = append(ops, Operation{Domain: state.DomainUsers, Verb: VerbNoop, Target: def.Name})
			continue
		}
		ops = append(ops, Operation{
			Domain: state.DomainUsers,
			Verb:   VerbUpdate,
			Target: def.Name,
			Payload: UserChange{
				Name:   def.Name,
				ID:     existing.ID,
				Fields: fields,
				Policy: merge(existing.Policy, fields),
			},
		})
	}
	return ops
}

// planPlugins installs missing plugins. A plugin installed in this run is
// not loaded until the server restarts, so its configuration is applied by
// the first run after that.
func planPlugins(defs []manifest.PluginDef, actual *state.ActualState) []Operation {
	ops := make([]Operation, 0, len(defs))
	for _, def := range defs {
		existing, ok := actual.Plugin(def.Name)
		if !ok {
			ops = append(ops, Operation{
				Domain:  state.DomainPlugins,
				Verb:    VerbCreate,
				Target:  def.Name,
				Payload: PluginChange{Name: def.Name},
			})
			continue
		}

		fields := def.Fields()
		if len(fields) == 0 || existing.Configuration == nil {
			ops = append(ops, Operation{Domain: state.DomainPlugins, Verb: VerbNoop, Target: def.Name})
			continue
		}
		drift := state.Drift(existing.Configuration, fields)
		if len(drift) == 0 {
			ops = append(ops, Operation{Domain: state.DomainPlugins, Verb: VerbNoop, Target: def.Name})
			continue
		}
		ops = append(ops, Operation{
			Domain: state.DomainPlugins,
			Verb:   VerbUpdate,
			Target: def.Name,
			Payload: PluginChange{
				Name:    def.Name,
				ID:      existing.ID,
				Record:  merge(existing.Configuration, fields),
				Changed: driftNames(drift),
			},
		})
	}
	return ops
}

// planStartup only ever completes the wizard; false leaves it alone.
func planStartup(s *manifest.StartupSettings, actual *state.ActualState) []Operation {
	op := Operation{Domain: state.DomainStartup, Verb: VerbNoop, Target: "wizard"}
	if *s.CompleteStartupWizard && actual.StartupWizardCompleted != nil && !*actual.StartupWizardCompleted {
		op.Verb = VerbUpdate
		op.Payload = StartupChange{}
	}
	return []Operation{op}
}
