// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/go-github/v75/github"
	"github.com/octo-sts/keymap/pkg/environment"
	"github.com/octo-sts/keymap/pkg/events"
)

const (
	// StorageKey is the store entry holding the bearer token.
	StorageKey = "auth_token"
	// TokenParam is the query parameter the backend hands a fresh token
	// back in.
	TokenParam = "token"

	// DefaultGitHubURL is where app installation pages live.
	DefaultGitHubURL = "https://github.com"
)

// Client talks to the keymap backend on behalf of one user session.
type Client struct {
	baseURL   string
	appName   string
	githubURL string

	http   *http.Client
	env    environment.Environment
	events events.Publisher

	initialized atomic.Bool

	mu           sync.RWMutex
	token        string
	installation *github.Installation
	repositories []*github.Repository
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for every request. Defaults to
// http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithGitHubURL overrides https://github.com for installation redirects,
// e.g. for GitHub Enterprise.
func WithGitHubURL(u string) Option {
	return func(cl *Client) {
		cl.githubURL = strings.TrimRight(u, "/")
	}
}

// New creates a Client for the backend at baseURL. appName is the GitHub
// App slug used for installation redirects.
func New(baseURL, appName string, env environment.Environment, pub events.Publisher, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing API base URL: %w", err)
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("API base URL %q is not absolute", baseURL)
	}
	if appName == "" {
		return nil, errors.New("GitHub app name is required")
	}
	if env == nil {
		return nil, errors.New("environment is required")
	}
	if pub == nil {
		return nil, errors.New("event publisher is required")
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		appName:   appName,
		githubURL: DefaultGitHubURL,
		http:      http.DefaultClient,
		env:       env,
		events:    pub,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}
