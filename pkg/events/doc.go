// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events carries session notifications from the API client to
// whoever cares about them: a UI, a CLI, or a CloudEvents sink.
//
// A [Bus] is constructed once by the composition root and injected into
// the client. Any number of handlers may subscribe to a [Kind]; handlers
// are invoked synchronously on the publishing goroutine, in no particular
// order. Use [Forward] to relay every notification to a CloudEvents
// client.
package events
