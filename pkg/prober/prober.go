/*
Copyright 2024 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package prober

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/chainguard-dev/clog"
	"github.com/octo-sts/keymap/pkg/api"
	envConfig "github.com/octo-sts/keymap/pkg/envconfig"
	"github.com/octo-sts/keymap/pkg/environment"
	"github.com/octo-sts/keymap/pkg/events"
	"github.com/octo-sts/keymap/pkg/secrets"
	"github.com/octo-sts/keymap/pkg/tokensource"
	"github.com/octo-sts/keymap/pkg/transport"
	"golang.org/x/oauth2"
)

// tokenCache holds the process-wide token source so the secret is read
// once per refresh interval rather than once per probe.
type tokenCache struct {
	newProvider func(ctx context.Context, provider string) (secrets.SecretProvider, error)

	mu sync.Mutex
	ts oauth2.TokenSource
}

var tokens = &tokenCache{newProvider: secrets.NewSecretProvider}

// tokenSource returns the cached source, building it on first use. A
// failure to build one is not cached.
func (tc *tokenCache) tokenSource(ctx context.Context, pcfg *envConfig.ProberConfig) (oauth2.TokenSource, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.ts != nil {
		return tc.ts, nil
	}
	sp, err := tc.newProvider(ctx, pcfg.SecretProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret provider: %w", err)
	}
	// The source outlives the probe that created it.
	tc.ts = tokensource.NewTokenSource(context.WithoutCancel(ctx), sp, pcfg.TokenSecret, 0)
	return tc.ts, nil
}

func Func(ctx context.Context) error {
	return run(ctx, tokens)
}

func run(ctx context.Context, tc *tokenCache) error {
	cfg, err := envConfig.Process()
	if err != nil {
		return fmt.Errorf("failed to process env var: %w", err)
	}
	pcfg, err := envConfig.ProberProcess()
	if err != nil {
		return fmt.Errorf("failed to process prober env var: %w", err)
	}

	ts, err := tc.tokenSource(ctx, pcfg)
	if err != nil {
		return err
	}
	tok, err := ts.Token()
	if err != nil {
		return fmt.Errorf("failed to read prober token: %w", err)
	}

	// Each probe is a fresh session seeded with the stored token.
	env, err := environment.NewMemory("")
	if err != nil {
		return err
	}
	if err := env.Set(api.StorageKey, tok.AccessToken); err != nil {
		return err
	}

	return Probe(ctx, cfg, env, transport.New(cfg, http.DefaultTransport), pcfg.Repository)
}

// Probe restores the session held by env and exercises the read side of
// the backend: installation lookup, branch listing and keyboard files.
// repo defaults to the first repository of the installation.
func Probe(ctx context.Context, cfg *envConfig.EnvConfig, env environment.Environment, hc *http.Client, repo string) error {
	bus := events.New()
	var authFailed bool
	if _, err := bus.Subscribe(events.AuthenticationFailed, func(context.Context, any) {
		authFailed = true
	}); err != nil {
		return err
	}

	c, err := api.New(cfg.APIBaseURL, cfg.GitHubAppName, env, bus, api.WithHTTPClient(hc))
	if err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		if authFailed {
			return fmt.Errorf("prober token was rejected: %w", err)
		}
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if !c.IsAuthorized() {
		return errors.New("session is not authorized")
	}
	if !c.IsAppInstalled() {
		return errors.New("app is not installed for the prober account")
	}

	if repo == "" {
		repo = c.Repositories()[0].GetFullName()
	}
	branches, err := c.FetchRepoBranches(ctx, repo)
	if err != nil {
		return fmt.Errorf("failed to list branches of %s: %w", repo, err)
	}
	clog.FromContext(ctx).Infof("%s has %d branches", repo, len(branches))

	files, err := c.FetchLayoutAndKeymap(ctx, repo, "")
	switch {
	case errors.Is(err, api.ErrNoLayouts):
		clog.FromContext(ctx).Warnf("%s has no layouts", repo)
		return nil
	case err != nil:
		return fmt.Errorf("failed to fetch keyboard files of %s: %w", repo, err)
	case files.Problem != nil:
		return fmt.Errorf("backend rejected keyboard files of %s: %s", repo, files.Problem)
	}
	return nil
}

// bogusToken is a bearer no backend would ever issue.
const bogusToken = "keymap-negative-prober"

func Negative(ctx context.Context) error {
	cfg, err := envConfig.Process()
	if err != nil {
		return fmt.Errorf("failed to process env var: %w", err)
	}
	env, err := environment.NewMemory("")
	if err != nil {
		return err
	}
	if err := env.Set(api.StorageKey, bogusToken); err != nil {
		return err
	}
	return ProbeRejected(ctx, cfg, env, transport.New(cfg, http.DefaultTransport))
}

// ProbeRejected checks that the backend refuses the session held by env:
// Init must fail with 401 and report it exactly once.
func ProbeRejected(ctx context.Context, cfg *envConfig.EnvConfig, env environment.Environment, hc *http.Client) error {
	bus := events.New()
	var failures int
	if _, err := bus.Subscribe(events.AuthenticationFailed, func(context.Context, any) {
		failures++
	}); err != nil {
		return err
	}

	c, err := api.New(cfg.APIBaseURL, cfg.GitHubAppName, env, bus, api.WithHTTPClient(hc))
	if err != nil {
		return err
	}
	err = c.Init(ctx)
	switch {
	case err == nil:
		return errors.New("backend accepted a bogus token")
	case api.StatusCode(err) != http.StatusUnauthorized:
		return fmt.Errorf("expected 401, got: %w", err)
	case failures != 1:
		return fmt.Errorf("expected one authentication failure, got %d", failures)
	}
	clog.FromContext(ctx).Infof("bogus token was rejected: %v", err)
	return nil
}
