// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api is a client for the keymap backend's GitHub proxy. It
// tracks the session's bearer token and the GitHub App installation the
// token grants access to, and exposes the handful of repository
// operations the backend offers: listing branches, reading the
// layout+keymap pair and committing it back.
//
// Construct one [Client] per process with [New], inject it where needed,
// and call [Client.Init] once at startup. Session changes are announced
// on the [events.Publisher] given to New.
package api
