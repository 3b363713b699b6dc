// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/octo-sts/keymap/pkg/events"
	"github.com/octo-sts/keymap/pkg/maxsize"
	"github.com/stretchr/testify/assert"
)

func TestDoRelativeURL(t *testing.T) {
	f := newFixture(t, "")
	f.backend.mux.HandleFunc("GET /github/foo", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})

	resp, err := f.client.Get(f.ctx, "/github/foo")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	assert.Equal(t, f.backend.URL+"/github/foo", resp.URL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestDoAbsoluteURL(t *testing.T) {
	f := newFixture(t, "")
	f.env.Set(StorageKey, "abc123")
	f.backend.handleInstalled("org/keyboard")
	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}

	var got *http.Request
	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
	}))
	defer other.Close()

	target := other.URL + "/elsewhere?x=1"
	resp, err := f.client.Get(f.ctx, target)
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	assert.Equal(t, target, resp.URL)
	assert.Equal(t, "/elsewhere", got.URL.Path)
	assert.Equal(t, "1", got.URL.Query().Get("x"))
	assert.Equal(t, "Bearer abc123", got.Header.Get("Authorization"))
}

func TestDoHeaders(t *testing.T) {
	f := newFixture(t, "")
	f.env.Set(StorageKey, "abc123")
	f.backend.handleInstalled("org/keyboard")
	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}

	var got http.Header
	f.backend.mux.HandleFunc("/github/echo", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	})

	// Caller-supplied Authorization wins and the caller's map is untouched.
	hdr := http.Header{"Authorization": {"token other"}, "X-Trace": {"1"}}
	if _, err := f.client.Do(f.ctx, Request{URL: "/github/echo", Header: hdr}); err != nil {
		t.Fatalf("Do() = %v", err)
	}
	assert.Equal(t, "token other", got.Get("Authorization"))
	assert.Equal(t, "1", got.Get("X-Trace"))
	assert.Equal(t, http.Header{"Authorization": {"token other"}, "X-Trace": {"1"}}, hdr)

	// Without one, the bearer is injected, still without mutating.
	hdr = http.Header{"X-Trace": {"2"}}
	if _, err := f.client.Do(f.ctx, Request{URL: "/github/echo", Header: hdr}); err != nil {
		t.Fatalf("Do() = %v", err)
	}
	assert.Equal(t, "Bearer abc123", got.Get("Authorization"))
	assert.Equal(t, http.Header{"X-Trace": {"2"}}, hdr)
}

func TestDoWithoutToken(t *testing.T) {
	f := newFixture(t, "")
	var got http.Header
	f.backend.mux.HandleFunc("/github/echo", func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	})

	if _, err := f.client.Get(f.ctx, "/github/echo"); err != nil {
		t.Fatalf("Get() = %v", err)
	}
	assert.Empty(t, got.Get("Authorization"))
}

func TestDoJSONBody(t *testing.T) {
	f := newFixture(t, "")
	var method, contentType, body string
	f.backend.mux.HandleFunc("/github/echo", func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	resp, err := f.client.Do(f.ctx, Request{
		Method: http.MethodPut,
		URL:    "/github/echo",
		Body:   map[string]string{"hello": "world"},
	})
	if err != nil {
		t.Fatalf("Do() = %v", err)
	}
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "application/json", contentType)
	assert.JSONEq(t, `{"hello": "world"}`, body)
}

func TestDoUnauthorized(t *testing.T) {
	f := newFixture(t, "")
	f.backend.mux.HandleFunc("/github/private", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})

	_, err := f.client.Get(f.ctx, "/github/private")
	var rerr *ResponseError
	if !errors.As(err, &rerr) {
		t.Fatalf("Get() = %v, wanted *ResponseError", err)
	}
	assert.Equal(t, http.StatusUnauthorized, rerr.Response.StatusCode)
	assert.Contains(t, string(rerr.Response.Body), "bad credentials")

	assert.Equal(t, 1, f.events.count(events.AuthenticationFailed))
	payload := f.events.payloads[events.AuthenticationFailed][0].(*Response)
	assert.Equal(t, http.StatusUnauthorized, payload.StatusCode)
}

func TestDoUnauthorizedOversizedBody(t *testing.T) {
	f := newFixture(t, "")
	f.backend.mux.HandleFunc("/github/private", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("denied ", 100), http.StatusUnauthorized)
	})
	client, err := New(f.backend.URL, "keymap-editor", f.env, f.bus,
		WithHTTPClient(&http.Client{Transport: maxsize.NewRoundTripper(16, f.backend.Client().Transport)}))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}

	_, err = client.Get(f.ctx, "/github/private")
	assert.ErrorIs(t, err, maxsize.ErrTooLarge)
	assert.Equal(t, 1, f.events.count(events.AuthenticationFailed))
}

func TestDoOtherFailures(t *testing.T) {
	f := newFixture(t, "")
	f.backend.mux.HandleFunc("/github/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := f.client.Get(f.ctx, "/github/missing")
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.Equal(t, 0, f.events.count(events.AuthenticationFailed))

	// Transport errors come back as they are.
	f.backend.Close()
	_, err = f.client.Get(f.ctx, "/github/missing")
	var uerr *url.Error
	assert.True(t, errors.As(err, &uerr), "got %T", err)
	assert.Equal(t, 0, StatusCode(err))
	assert.Equal(t, 0, f.events.count(events.AuthenticationFailed))
}
