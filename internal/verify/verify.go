// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

package verify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/venkyr77/jellarr/internal/jellyfin"
	"github.com/venkyr77/jellarr/internal/logging"
	"github.com/venkyr77/jellarr/internal/manifest"
	"github.com/venkyr77/jellarr/internal/metrics"
	"github.com/venkyr77/jellarr/internal/state"
)

// ErrComplianceMismatch is returned when the server does not match the
// manifest after a run.
var ErrComplianceMismatch = errors.New("server does not match manifest")

// Values used in mismatches that have no JSON value of their own.
const (
	valuePresent  = "present"
	valueAbsent   = "absent"
	valueAccepted = "accepted"
	valueRejected = "rejected"
)

// StateReader produces a fresh snapshot.
type StateReader interface {
	ReadActualState(ctx context.Context, desired *manifest.DesiredState) (*state.ActualState, error)
}

var _ StateReader = (*state.Reader)(nil)

// Authenticator checks a user's password.
type Authenticator interface {
	AuthenticateByName(ctx context.Context, username, password string) (*jellyfin.AuthenticationResult, error)
}

var _ Authenticator = (*jellyfin.Client)(nil)

// Options configures a Verifier.
type Options struct {
	Reader StateReader

	// Auth is only used when VerifyPasswords is set.
	Auth            Authenticator
	VerifyPasswords bool
}

// Verifier compares a fresh read of the server with the manifest.
type Verifier struct {
	reader          StateReader
	auth            Authenticator
	verifyPasswords bool
}

// New creates a Verifier.
func New(opts Options) *Verifier {
	return &Verifier{
		reader:          opts.Reader,
		auth:            opts.Auth,
		verifyPasswords: opts.VerifyPasswords && opts.Auth != nil,
	}
}

// Verify re-reads the server and reports every managed value that differs.
// The error wraps ErrComplianceMismatch when the report is not compliant,
// or is the context error when ctx is done.
func (v *Verifier) Verify(ctx context.Context, desired *manifest.DesiredState) (ComplianceReport, error) {
	report := ComplianceReport{RunID: logging.RunIDFromContext(ctx)}

	actual, err := v.reader.ReadActualState(ctx, desired)
	if err != nil {
		return report, err
	}

	for _, d := range state.Domains {
		if !state.Managed(desired, d) {
			continue
		}
		dc := DomainCompliance{Domain: d}
		if readErr := actual.ReadError(d); readErr != nil {
			dc.Err = fmt.Errorf("read %s: %w", d, readErr)
		} else {
			dc.Mismatches, dc.Err = v.checkDomain(ctx, d, desired, actual)
			dc.Observations = observeDomain(d, desired, actual)
		}
		metrics.ComplianceMismatches.WithLabelValues(string(d)).Set(float64(len(dc.Mismatches)))
		report.Domains = append(report.Domains, dc)
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if observations := report.Observations(); len(observations) > 0 {
		logging.Ctx(ctx).Warn().Int("observations", len(observations)).Msg("Server differs in values the reconciler does not change")
	}
	if !report.Compliant() {
		logging.Ctx(ctx).Warn().Int("mismatches", report.MismatchCount()).Msg("Server does not match manifest")
		return report, fmt.Errorf("%w: %d mismatches", ErrComplianceMismatch, report.MismatchCount())
	}
	logging.Ctx(ctx).Info().Msg("Server matches manifest")
	return report, nil
}

func (v *Verifier) checkDomain(ctx context.Context, d state.Domain, desired *manifest.DesiredState, actual *state.ActualState) ([]Mismatch, error) {
	switch d {
	case state.DomainSystem, state.DomainEncoding, state.DomainBranding:
		return fieldMismatches(string(d), actual.Record(d), state.DesiredFields(desired, d)), nil
	case state.DomainLibraries:
		return checkLibraries(desired.Libraries, actual), nil
	case state.DomainUsers:
		return v.checkUsers(ctx, desired.Users, actual)
	case state.DomainPlugins:
		return checkPlugins(desired.Plugins, actual), nil
	case state.DomainStartup:
		return checkStartup(desired.Startup, actual), nil
	default:
		return nil, nil
	}
}

func fieldMismatches(prefix string, rec jellyfin.Record, fields []manifest.Field) []Mismatch {
	var out []Mismatch
	for _, drift := range state.Drift(rec, fields) {
		m := Mismatch{
			Field:    prefix + "." + drift.Field.Name(),
			Expected: drift.Field.Value,
			Observed: drift.Observed,
		}
		if !drift.Present {
			m.Observed = valueAbsent
		}
		out = append(out, m)
	}
	return out
}

// observeDomain returns drift that is reported but never enforced.
func observeDomain(d state.Domain, desired *manifest.DesiredState, actual *state.ActualState) []Mismatch {
	if d != state.DomainLibraries {
		return nil
	}
	var out []Mismatch
	for _, def := range desired.Libraries {
		lib, ok := actual.Library(def.Name)
		if !ok {
			continue
		}
		if state.CollectionTypeDrifted(lib.CollectionType, def.CollectionType) {
			out = append(out, Mismatch{Field: "libraries." + def.Name + ".collectionType", Expected: def.CollectionType, Observed: lib.CollectionType})
		}
	}
	return out
}

// checkLibraries requires every manifest path on the server. Extra server
// paths and a differing collection type are not mismatches since the
// reconciler never changes them. The type is reported by observeDomain.
func checkLibraries(defs []manifest.LibraryDef, actual *state.ActualState) []Mismatch {
	var out []Mismatch
	for _, def := range defs {
		lib, ok := actual.Library(def.Name)
		if !ok {
			out = append(out, Mismatch{Field: "libraries." + def.Name, Expected: valuePresent, Observed: valueAbsent})
			continue
		}
		if missing := state.MissingPaths(lib.Paths, def.Paths); len(missing) > 0 {
			out = append(out, Mismatch{Field: "libraries." + def.Name + ".paths", Expected: def.Paths, Observed: lib.Paths})
		}
	}
	return out
}

func (v *Verifier) checkUsers(ctx context.Context, defs []manifest.UserDef, actual *state.ActualState) ([]Mismatch, error) {
	var out []Mismatch
	var errs []error
	for _, def := range defs {
		user, ok := actual.User(def.Name)
		if !ok {
			out = append(out, Mismatch{Field: "users." + def.Name, Expected: valuePresent, Observed: valueAbsent})
			continue
		}
		out = append(out, fieldMismatches("users."+def.Name+".policy", user.Policy, def.Policy.Fields())...)

		if !v.verifyPasswords {
			continue
		}
		_, err := v.auth.AuthenticateByName(ctx, def.Name, def.Password)
		switch {
		case err == nil:
		case jellyfin.StatusCode(err) == http.StatusUnauthorized:
			out = append(out, Mismatch{Field: "users." + def.Name + ".password", Expected: valueAccepted, Observed: valueRejected})
		default:
			errs = append(errs, fmt.Errorf("authenticate %q: %w", def.Name, err))
		}
	}
	return out, errors.Join(errs...)
}

// checkPlugins requires each plugin to be installed. Configuration is only
// compared once the plugin is loaded.
func checkPlugins(defs []manifest.PluginDef, actual *state.ActualState) []Mismatch {
	var out []Mismatch
	for _, def := range defs {
		p, ok := actual.Plugin(def.Name)
		if !ok {
			out = append(out, Mismatch{Field: "plugins." + def.Name, Expected: valuePresent, Observed: valueAbsent})
			continue
		}
		if p.Configuration == nil {
			continue
		}
		out = append(out, fieldMismatches("plugins."+def.Name+".configuration", p.Configuration, def.Fields())...)
	}
	return out
}

func checkStartup(s *manifest.StartupSettings, actual *state.ActualState) []Mismatch {
	if !*s.CompleteStartupWizard || actual.StartupWizardCompleted == nil || *actual.StartupWizardCompleted {
		return nil
	}
	return []Mismatch{{Field: "startup.completeStartupWizard", Expected: true, Observed: false}}
}
