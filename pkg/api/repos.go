// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v75/github"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// defaultLayoutName is the layout preferred when the keyboard files
// define several.
const defaultLayoutName = "default"

// keyboardFilesResponse is the body of GET /github/keyboard-files/...
// Layouts keep document order so "first" means the first key written.
type keyboardFilesResponse struct {
	Info struct {
		Layouts *orderedmap.OrderedMap[string, layoutInfo] `json:"layouts"`
	} `json:"info"`
	Keymap json.RawMessage `json:"keymap"`
}

type layoutInfo struct {
	Layout json.RawMessage `json:"layout"`
}

// present reports whether the entry carries a layout. A null entry
// decodes to the zero value.
func (l layoutInfo) present() bool {
	return len(l.Layout) != 0 && string(l.Layout) != "null"
}

// installationSegment returns the escaped installation id for use in a
// request path.
func (c *Client) installationSegment() (string, error) {
	inst := c.Installation()
	if inst == nil {
		return "", ErrNoInstallation
	}
	return url.PathEscape(strconv.FormatInt(inst.GetID(), 10)), nil
}

// FetchRepoBranches lists the branches of repo, given by full name
// ("owner/name").
func (c *Client) FetchRepoBranches(ctx context.Context, repo string) ([]*github.Branch, error) {
	inst, err := c.installationSegment()
	if err != nil {
		return nil, err
	}

	resp, err := c.Get(ctx, fmt.Sprintf("/github/installation/%s/%s/branches", inst, url.PathEscape(repo)))
	if err != nil {
		return nil, err
	}
	var branches []*github.Branch
	if err := resp.Decode(&branches); err != nil {
		return nil, fmt.Errorf("decoding branches: %w", err)
	}
	return branches, nil
}

// FetchLayoutAndKeymap reads the layout+keymap pair of repo, from branch
// or the default branch when branch is empty. The layout named "default"
// is returned if present, otherwise the first one listed.
//
// A 400 from the backend is not an error here: the body is returned in
// KeyboardFiles.Problem for the caller to show.
func (c *Client) FetchLayoutAndKeymap(ctx context.Context, repo, branch string) (*KeyboardFiles, error) {
	inst, err := c.installationSegment()
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("/github/keyboard-files/%s/%s", inst, url.PathEscape(repo))
	if branch != "" {
		u += "?" + url.Values{"branch": {branch}}.Encode()
	}

	resp, err := c.Get(ctx, u)
	if err != nil {
		// TODO: drop this once the backend reports bad requests
		// consistently with every other endpoint.
		var rerr *ResponseError
		if errors.As(err, &rerr) && rerr.Response.StatusCode == http.StatusBadRequest {
			clog.FromContext(ctx).Errorf("Failed to load keymap and layout from github: %v", err)
			return &KeyboardFiles{Problem: rerr.Response.Body}, nil
		}
		return nil, err
	}

	var files keyboardFilesResponse
	if err := resp.Decode(&files); err != nil {
		return nil, fmt.Errorf("decoding keyboard files: %w", err)
	}
	layout, ok := defaultLayout(files.Info.Layouts)
	if !ok {
		return nil, ErrNoLayouts
	}
	return &KeyboardFiles{
		Layout: layout.Layout,
		Keymap: files.Keymap,
	}, nil
}

func defaultLayout(layouts *orderedmap.OrderedMap[string, layoutInfo]) (layoutInfo, bool) {
	if layouts == nil || layouts.Len() == 0 {
		return layoutInfo{}, false
	}
	if l, ok := layouts.Get(defaultLayoutName); ok && l.present() {
		return l, true
	}
	return layouts.Oldest().Value, true
}

// CommitChanges writes layout and keymap to branch of repo. The raw
// response is returned; a non-2xx status comes back as *ResponseError.
func (c *Client) CommitChanges(ctx context.Context, repo, branch string, layout, keymap json.RawMessage) (*Response, error) {
	inst, err := c.installationSegment()
	if err != nil {
		return nil, err
	}

	return c.Do(ctx, Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("/github/keyboard-files/%s/%s/%s", inst, url.PathEscape(repo), url.PathEscape(branch)),
		Header: http.Header{"Content-Type": {"application/json"}},
		Body: KeyboardFiles{
			Layout: layout,
			Keymap: keymap,
		},
	})
}
