// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

/*
Package state reads what a Jellyfin server currently holds.

A Reader takes one snapshot per run. Settings domains are kept as raw
records so the reconciler can merge onto them without dropping fields it
does not manage. Libraries, users and plugins are reduced to the identity
and the values the manifest can declare.

A failed read does not abort the snapshot. The error is stored in
ActualState.ReadErrors under its domain and every other domain is still
read:

	s, err := state.NewReader(client).ReadActualState(ctx, desired)
	if err != nil {
		return err // context done
	}
	if err := s.ReadError(state.DomainUsers); err != nil {
		// users cannot be reconciled this run
	}

The package also holds the comparison helpers shared by the reconciler and
the verifier: Drift for settings fields and MissingPaths/ExtraPaths for
library path sets.
*/
package state
