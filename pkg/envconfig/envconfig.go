// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package envconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/kelseyhightower/envconfig"
)

// DefaultMaxResponseBytes caps backend responses at 10MiB.
const DefaultMaxResponseBytes = 10 << 20

type EnvConfig struct {
	APIBaseURL        string  `envconfig:"KEYMAP_API_BASE_URL" required:"true"`
	GitHubAppName     string  `envconfig:"KEYMAP_GITHUB_APP_NAME" required:"true"`
	StateFile         string  `envconfig:"KEYMAP_STATE_FILE" required:"false"`
	RequestsPerSecond float64 `envconfig:"KEYMAP_REQUESTS_PER_SECOND" required:"false" default:"0"`
	MaxResponseBytes  int64   `envconfig:"KEYMAP_MAX_RESPONSE_BYTES" required:"false" default:"10485760"`
	EventingIngress   string  `envconfig:"EVENT_INGRESS_URI" required:"false"`
	LogLevel          string  `envconfig:"LOG_LEVEL" required:"false" default:"info"`
}

type ProberConfig struct {
	TokenSecret    string `envconfig:"PROBER_TOKEN_SECRET" required:"true"`
	SecretProvider string `envconfig:"PROBER_SECRET_PROVIDER" required:"false" default:"gcp"`
	Repository     string `envconfig:"PROBER_REPOSITORY" required:"false"`
}

// Process reads the client configuration from the environment and
// validates it.
func Process() (*EnvConfig, error) {
	cfg := new(EnvConfig)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StateFilePath returns KEYMAP_STATE_FILE, or keymap/state.yaml under the
// user's config directory when it is unset.
func (c *EnvConfig) StateFilePath() (string, error) {
	if c.StateFile != "" {
		return c.StateFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, "keymap", "state.yaml"), nil
}

func ProberProcess() (*ProberConfig, error) {
	cfg := new(ProberConfig)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *EnvConfig) Validate() error {
	var merr error

	u, err := url.Parse(c.APIBaseURL)
	switch {
	case err != nil:
		merr = multierror.Append(merr, fmt.Errorf("KEYMAP_API_BASE_URL: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		merr = multierror.Append(merr, fmt.Errorf("KEYMAP_API_BASE_URL: unsupported scheme %q", u.Scheme))
	case u.Host == "":
		merr = multierror.Append(merr, errors.New("KEYMAP_API_BASE_URL: missing host"))
	}

	if c.GitHubAppName == "" {
		merr = multierror.Append(merr, errors.New("KEYMAP_GITHUB_APP_NAME: must not be empty"))
	}
	if c.RequestsPerSecond < 0 {
		merr = multierror.Append(merr, fmt.Errorf("KEYMAP_REQUESTS_PER_SECOND: must not be negative, got %v", c.RequestsPerSecond))
	}
	if c.MaxResponseBytes <= 0 {
		merr = multierror.Append(merr, fmt.Errorf("KEYMAP_MAX_RESPONSE_BYTES: must be positive, got %d", c.MaxResponseBytes))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		merr = multierror.Append(merr, fmt.Errorf("LOG_LEVEL: unsupported level %q", c.LogLevel))
	}

	return merr
}
