// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoInstallation is returned by repository operations when the
	// session has no GitHub App installation.
	ErrNoInstallation = errors.New("no GitHub app installation")
	// ErrNoLayouts is returned when the backend's keyboard files list no
	// layouts at all.
	ErrNoLayouts = errors.New("keyboard files contain no layouts")
)

// ResponseError is returned for any response outside the 2xx range. The
// response is fully read and available to the caller.
type ResponseError struct {
	Response *Response
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.Response.URL, e.Response.StatusCode, http.StatusText(e.Response.StatusCode))
}

// StatusCode returns the HTTP status of err if it is (or wraps) a
// *ResponseError, and 0 otherwise.
func StatusCode(err error) int {
	var rerr *ResponseError
	if errors.As(err, &rerr) {
		return rerr.Response.StatusCode
	}
	return 0
}
