// jellarr - Declarative Jellyfin Configuration Agent
// Copyright 2026 The jellarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venkyr77/jellarr

// Package verify checks, after a run, that the server holds what the
// manifest declares. It reads a fresh snapshot instead of trusting the
// reconciler's own results.
//
// Library paths are checked as a subset: every manifest path must exist,
// and extra server paths are allowed. Passwords are only checked when
// password verification is enabled, by authenticating as each user.
package verify
