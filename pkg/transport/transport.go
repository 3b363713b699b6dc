// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package transport assembles the HTTP client used to talk to the keymap
// backend: response size capping always, rate limiting when configured.
package transport

import (
	"net/http"

	envConfig "github.com/octo-sts/keymap/pkg/envconfig"
	"github.com/octo-sts/keymap/pkg/maxsize"
	"golang.org/x/time/rate"
)

// New returns an *http.Client layered on base (http.DefaultTransport when
// nil). No client timeout is set; callers bound requests with their
// context.
func New(cfg *envConfig.EnvConfig, base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}

	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = envConfig.DefaultMaxResponseBytes
	}
	var rt http.RoundTripper = maxsize.NewRoundTripper(maxBytes, base)

	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rt = NewRateLimitingRoundTripper(rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst), rt)
	}

	return &http.Client{Transport: rt}
}
