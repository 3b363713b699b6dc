// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/chainguard-dev/clog"
	mce "github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics/cloudevents"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/octo-sts/keymap/pkg/api"
	envConfig "github.com/octo-sts/keymap/pkg/envconfig"
	"github.com/octo-sts/keymap/pkg/environment"
	"github.com/octo-sts/keymap/pkg/events"
	"github.com/octo-sts/keymap/pkg/transport"
	"github.com/spf13/cobra"
)

const eventSource = "keymap-cli"

var errNotLoggedIn = errors.New("not logged in, run `keymap login` first")

// ceClientFactory builds the client notifications are forwarded to when
// EVENT_INGRESS_URI is set.
type ceClientFactory func(ctx context.Context, target string) (cloudevents.Client, error)

func defaultCEClient(ctx context.Context, target string) (cloudevents.Client, error) {
	return mce.NewClientHTTP(eventSource, mce.WithTarget(ctx, target)...)
}

// session holds what every subcommand shares. It is populated by the root
// command's PersistentPreRunE.
type session struct {
	newCEClient ceClientFactory

	cfg    *envConfig.EnvConfig
	env    *environment.Local
	bus    *events.Bus
	client *api.Client
	stops  []func()
}

func newRootCommand(newCEClient ceClientFactory) *cobra.Command {
	s := &session{newCEClient: newCEClient}

	root := &cobra.Command{
		Use:               "keymap",
		Short:             "Edit keyboard layouts and keymaps stored in GitHub repositories",
		SilenceUsage:      true,
		PersistentPreRunE: s.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			s.close()
		},
	}
	root.AddCommand(
		newLoginCommand(s),
		newInstallCommand(s),
		newStatusCommand(s),
		newBranchesCommand(s),
		newFetchCommand(s),
		newCommitCommand(s),
	)
	return root
}

func (s *session) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := envConfig.Process()
	if err != nil {
		return fmt.Errorf("failed to process env var: %w", err)
	}
	s.cfg = cfg

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return err
	}
	ctx := clog.WithLogger(cmd.Context(), clog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
	cmd.SetContext(ctx)

	path, err := cfg.StateFilePath()
	if err != nil {
		return err
	}
	store, err := environment.NewFileStore(path)
	if err != nil {
		return err
	}
	s.env = environment.NewLocal(store, environment.PrintOpener(cmd.ErrOrStderr()))

	s.bus = events.New()
	if err := s.subscribeLogs(); err != nil {
		return err
	}
	if cfg.EventingIngress != "" {
		ceclient, err := s.newCEClient(ctx, cfg.EventingIngress)
		if err != nil {
			return fmt.Errorf("failed to create cloudevents client: %w", err)
		}
		stop, err := events.Forward(s.bus, ceclient, eventSource)
		if err != nil {
			return err
		}
		s.stops = append(s.stops, stop)
	}

	s.client, err = api.New(cfg.APIBaseURL, cfg.GitHubAppName, s.env, s.bus,
		api.WithHTTPClient(transport.New(cfg, http.DefaultTransport)))
	return err
}

func (s *session) subscribeLogs() error {
	for kind, h := range map[events.Kind]events.Handler{
		events.Authenticated: func(ctx context.Context, _ any) {
			clog.FromContext(ctx).Debug("authenticated")
		},
		events.AppNotInstalled: func(ctx context.Context, _ any) {
			clog.FromContext(ctx).Warn("the GitHub app is not installed, run `keymap install`")
		},
		events.AuthenticationFailed: func(ctx context.Context, payload any) {
			if resp, ok := payload.(*api.Response); ok {
				clog.FromContext(ctx).Warnf("%s was rejected, run `keymap login` again", resp.URL)
			}
		},
	} {
		stop, err := s.bus.Subscribe(kind, h)
		if err != nil {
			return err
		}
		s.stops = append(s.stops, stop)
	}
	return nil
}

func (s *session) close() {
	for _, stop := range s.stops {
		stop()
	}
	s.stops = nil
}

// restore runs Init and requires a logged in session.
func (s *session) restore(ctx context.Context) error {
	if err := s.client.Init(ctx); err != nil {
		return err
	}
	if !s.client.IsAuthorized() {
		return errNotLoggedIn
	}
	return nil
}
