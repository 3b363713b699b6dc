// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/octo-sts/keymap/pkg/events"
	"golang.org/x/oauth2"
)

// Get issues a GET for u. See Do.
func (c *Client) Get(ctx context.Context, u string) (*Response, error) {
	return c.Do(ctx, Request{URL: u})
}

// Do sends req and returns the fully read response.
//
// A URL starting with "/" is resolved against the API base. The session's
// bearer token is attached unless req already carries an Authorization
// header. Responses outside 2xx are returned as *ResponseError; a 401 is
// additionally logged and published as events.AuthenticationFailed before
// the error is returned, even when the body cannot be read. Transport
// errors are returned as they are.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	hreq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()

	// On a failed read the 401 payload carries whatever was read.
	body, rerr := io.ReadAll(hresp.Body)
	resp := &Response{
		URL:        hreq.URL.String(),
		StatusCode: hresp.StatusCode,
		Header:     hresp.Header,
		Body:       body,
	}
	if hresp.StatusCode == http.StatusUnauthorized {
		clog.FromContext(ctx).Errorf("Authentication failed: %s %s", hreq.Method, resp.URL)
		c.events.Publish(ctx, events.AuthenticationFailed, resp)
	}
	if rerr != nil {
		return nil, fmt.Errorf("reading response from %s: %w", resp.URL, rerr)
	}

	if hresp.StatusCode >= 200 && hresp.StatusCode < 300 {
		return resp, nil
	}
	return nil, &ResponseError{Response: resp}
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	u := req.URL
	if strings.HasPrefix(u, "/") {
		u = c.baseURL + u
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	hreq, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if req.Header != nil {
		hreq.Header = req.Header.Clone()
	}
	if body != nil && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", "application/json")
	}
	if tok := c.currentToken(); tok != "" && hreq.Header.Get("Authorization") == "" {
		(&oauth2.Token{AccessToken: tok}).SetAuthHeader(hreq)
	}
	return hreq, nil
}
