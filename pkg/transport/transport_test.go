// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	envConfig "github.com/octo-sts/keymap/pkg/envconfig"
	"github.com/octo-sts/keymap/pkg/maxsize"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestNewCapsResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("k", 64))
	}))
	defer srv.Close()

	client := New(&envConfig.EnvConfig{MaxResponseBytes: 16}, nil)
	resp, err := client.Get(srv.URL)
	if err == nil {
		_, err = io.ReadAll(resp.Body)
		resp.Body.Close()
	}
	assert.True(t, errors.Is(err, maxsize.ErrTooLarge), "got %v", err)
}

func TestNewRateLimited(t *testing.T) {
	client := New(&envConfig.EnvConfig{MaxResponseBytes: 1024, RequestsPerSecond: 5}, nil)
	_, ok := client.Transport.(*RateLimitingRoundTripper)
	assert.True(t, ok, "transport = %T", client.Transport)

	client = New(&envConfig.EnvConfig{MaxResponseBytes: 1024}, nil)
	_, ok = client.Transport.(*RateLimitingRoundTripper)
	assert.False(t, ok, "unlimited config should not rate limit")
}

func TestRateLimitingRoundTripperHonorsContext(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	// One token, refilled far in the future.
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	client := &http.Client{Transport: NewRateLimitingRoundTripper(limiter, nil)}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Do(req); err == nil {
		t.Error("expected the second request to be rejected by the limiter")
	}
	assert.Equal(t, 1, calls)
}
