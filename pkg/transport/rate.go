// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitingRoundTripper is a custom RoundTripper that enforces rate limits
type RateLimitingRoundTripper struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

// RoundTrip waits for the limiter before handing the request on. A
// cancelled request context aborts the wait.
func (r *RateLimitingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := r.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return r.transport.RoundTrip(req)
}

// NewRateLimitingRoundTripper creates a new instance of RateLimitingRoundTripper
func NewRateLimitingRoundTripper(limiter *rate.Limiter, transport http.RoundTripper) *RateLimitingRoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &RateLimitingRoundTripper{
		transport: transport,
		limiter:   limiter,
	}
}
