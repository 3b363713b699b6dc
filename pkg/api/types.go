// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/go-github/v75/github"
)

// InstallationInfo is the body of GET /github/installation.
type InstallationInfo struct {
	Installation *github.Installation `json:"installation"`
	Repositories []*github.Repository `json:"repositories"`
}

// KeyboardFiles is the layout+keymap pair stored in a repository. Both
// documents are kept verbatim so they round-trip through CommitChanges
// unchanged.
type KeyboardFiles struct {
	Layout json.RawMessage `json:"layout"`
	Keymap json.RawMessage `json:"keymap"`

	// Problem holds the backend's response body when it rejected the
	// fetch with 400 Bad Request. Layout and Keymap are empty then.
	Problem json.RawMessage `json:"-"`
}

// Request describes an outbound call. Only URL is required.
type Request struct {
	// Method defaults to GET.
	Method string
	// URL is absolute, or relative to the API base when it starts with "/".
	URL string
	// Header is copied before use; the caller's map is never modified.
	Header http.Header
	// Body, when non-nil, is sent as JSON.
	Body any
}

// Response is a fully read HTTP response.
type Response struct {
	URL        string      `json:"url"`
	StatusCode int         `json:"status"`
	Header     http.Header `json:"-"`
	Body       []byte      `json:"-"`
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}
