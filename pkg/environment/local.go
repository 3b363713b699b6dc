// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/chainguard-dev/clog"
)

// Opener sends the user to an address, e.g. by launching a browser.
type Opener func(ctx context.Context, u string) error

// PrintOpener returns an Opener that asks the user to open the address
// themselves.
func PrintOpener(w io.Writer) Opener {
	return func(_ context.Context, u string) error {
		_, err := fmt.Fprintf(w, "Open the following address in your browser:\n\n  %s\n\n", u)
		return err
	}
}

// Local is the Environment of a command line session: storage lives on
// disk and the "current address" is whatever redirect the user hands back
// to us through SetLocation.
type Local struct {
	*FileStore

	open Opener

	mu       sync.RWMutex
	location *url.URL
}

var _ Environment = (*Local)(nil)

func NewLocal(store *FileStore, open Opener) *Local {
	return &Local{FileStore: store, open: open}
}

// SetLocation records the address the session is "at", typically the
// redirect URL produced by the backend's authorize endpoint.
func (l *Local) SetLocation(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing location: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.location = u
	return nil
}

func (l *Local) Location() *url.URL {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.location == nil {
		return nil
	}
	u := *l.location
	return &u
}

func (l *Local) ReplaceURL(raw string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var base url.URL
	if l.location != nil {
		base = *l.location
	}
	u, err := base.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing replacement %q: %w", raw, err)
	}
	l.location = u
	return nil
}

func (l *Local) Navigate(ctx context.Context, u string) error {
	clog.FromContext(ctx).Debugf("navigating to %s", u)
	return l.open(ctx, u)
}
