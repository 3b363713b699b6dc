// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package environment abstracts the host the API client runs in: the
// address it was opened with, the ability to send the user somewhere
// else, and a small durable string store.
package environment

import (
	"context"
	"net/url"
)

// Environment is the capability the API client is given in place of a
// browser's location, history and local storage.
type Environment interface {
	// Location returns the current address, or nil if there is none.
	Location() *url.URL
	// ReplaceURL changes the visible address without navigating.
	ReplaceURL(u string) error
	// Navigate sends the user to u.
	Navigate(ctx context.Context, u string) error

	Store
}

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// Query returns the query parameters of env's current address.
func Query(env Environment) url.Values {
	loc := env.Location()
	if loc == nil {
		return url.Values{}
	}
	return loc.Query()
}
