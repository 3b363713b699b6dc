// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	"github.com/octo-sts/keymap/pkg/environment"
	"github.com/octo-sts/keymap/pkg/events"
)

// Init restores the session. Only the first call does anything; later
// and concurrent calls return nil immediately, whatever the outcome of
// the first.
//
// The token comes from the store, or failing that from a one-time
// "token" query parameter on the current address, which is then
// persisted and dropped from the visible address. With a token in hand
// Init looks up the installation and publishes events.Authenticated,
// plus events.AppNotInstalled when there is none.
func (c *Client) Init(ctx context.Context) error {
	if !c.initialized.CompareAndSwap(false, true) {
		return nil
	}

	tok, ok, err := c.env.Get(StorageKey)
	if err != nil {
		return fmt.Errorf("reading stored token: %w", err)
	}
	if !ok || tok == "" {
		tok, err = c.adoptTokenParam()
		if err != nil {
			return err
		}
	}
	if tok == "" {
		clog.FromContext(ctx).Debug("no stored token, session is unauthenticated")
		return nil
	}

	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()

	resp, err := c.Get(ctx, "/github/installation")
	if err != nil {
		return err
	}
	var info InstallationInfo
	if err := resp.Decode(&info); err != nil {
		return fmt.Errorf("decoding installation: %w", err)
	}

	c.mu.Lock()
	c.installation = info.Installation
	c.repositories = info.Repositories
	if c.installation == nil {
		c.repositories = nil
	}
	c.mu.Unlock()

	c.events.Publish(ctx, events.Authenticated, nil)
	if info.Installation == nil {
		clog.FromContext(ctx).Warn("No GitHub app installation found for authenticated user.")
		c.events.Publish(ctx, events.AppNotInstalled, nil)
	}
	return nil
}

// adoptTokenParam moves a token handed back on the current address into
// the store and strips the query from the visible address.
func (c *Client) adoptTokenParam() (string, error) {
	tok := environment.Query(c.env).Get(TokenParam)
	if tok == "" {
		return "", nil
	}
	path := "/"
	if loc := c.env.Location(); loc != nil && loc.Path != "" {
		path = loc.EscapedPath()
	}
	if err := c.env.ReplaceURL(path); err != nil {
		return "", fmt.Errorf("stripping token from address: %w", err)
	}
	if err := c.env.Set(StorageKey, tok); err != nil {
		return "", fmt.Errorf("storing token: %w", err)
	}
	return tok, nil
}

// BeginLoginFlow forgets the stored token and the installation, and sends the user to the
// backend's authorize endpoint, which redirects back with a fresh token.
func (c *Client) BeginLoginFlow(ctx context.Context) error {
	if err := c.env.Remove(StorageKey); err != nil {
		return fmt.Errorf("removing stored token: %w", err)
	}
	c.mu.Lock()
	c.token = ""
	c.installation = nil
	c.repositories = nil
	c.mu.Unlock()

	return c.env.Navigate(ctx, c.baseURL+"/github/authorize")
}

// BeginInstallAppFlow sends the user to the GitHub App's installation
// page. Local state is left alone; the user comes back through the login
// flow.
func (c *Client) BeginInstallAppFlow(ctx context.Context) error {
	return c.env.Navigate(ctx, fmt.Sprintf("%s/apps/%s/installations/new", c.githubURL, url.PathEscape(c.appName)))
}

// IsAuthorized reports whether the session holds a token.
func (c *Client) IsAuthorized() bool {
	return c.currentToken() != ""
}

// IsAppInstalled reports whether the session has an installation with at
// least one accessible repository.
func (c *Client) IsAppInstalled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.installation != nil && len(c.repositories) > 0
}

// Installation returns the session's installation, or nil.
func (c *Client) Installation() *github.Installation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.installation
}

// Repositories returns the repositories the installation can access.
func (c *Client) Repositories() []*github.Repository {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.repositories)
}
