// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package maxsize

import (
	"errors"
	"io"
	"net/http"
)

// ErrTooLarge is returned from reads of a response body that exceeds the
// configured limit.
var ErrTooLarge = errors.New("response body exceeds size limit")

// NewRoundTripper creates a new http.RoundTripper that wraps the given
// http.RoundTripper and fails reads of response bodies larger than maxSize
// bytes. Unlike a plain io.LimitedReader, an oversized body is never
// silently truncated.
func NewRoundTripper(maxSize int64, inner http.RoundTripper) http.RoundTripper {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &ms{
		base:        inner,
		maxBodySize: maxSize,
	}
}

type ms struct {
	base        http.RoundTripper
	maxBodySize int64
}

// RoundTrip implements http.RoundTripper
func (rt *ms) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.ContentLength > rt.maxBodySize {
		// Keep the status and headers readable; only the body fails.
		resp.Body.Close()
		resp.Body = tooLarge{}
		return resp, nil
	}

	resp.Body = &lr{
		r:         resp.Body,
		remaining: rt.maxBodySize,
	}
	return resp, nil
}

// lr reads at most remaining bytes and reports ErrTooLarge if the
// underlying body has more.
type lr struct {
	r         io.ReadCloser
	remaining int64
}

func (l *lr) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		// Probe for one more byte to tell EOF apart from overflow.
		var one [1]byte
		n, err := l.r.Read(one[:])
		if n > 0 {
			return 0, ErrTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	return n, err
}

// Close implements io.Closer
func (l *lr) Close() error {
	return l.r.Close()
}

// tooLarge replaces a body whose declared length is over the limit.
type tooLarge struct{}

func (tooLarge) Read([]byte) (int, error) { return 0, ErrTooLarge }

func (tooLarge) Close() error { return nil }
