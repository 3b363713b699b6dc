// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize with GitHub through the keymap backend",
		Long: "login forgets any stored token and prints the backend's authorize address. " +
			"After approving access, paste the address the browser was redirected to.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := s.client.BeginLoginFlow(ctx); err != nil {
				return err
			}

			fmt.Fprint(cmd.ErrOrStderr(), "Redirect address: ")
			sc := bufio.NewScanner(cmd.InOrStdin())
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return fmt.Errorf("reading redirect address: %w", err)
				}
				return errors.New("no redirect address given")
			}
			if err := s.env.SetLocation(strings.TrimSpace(sc.Text())); err != nil {
				return err
			}

			if err := s.restore(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			if !s.client.IsAppInstalled() {
				fmt.Fprintln(cmd.OutOrStdout(), "The GitHub app is not installed yet, run `keymap install`.")
			}
			return nil
		},
	}
}

func newInstallCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Install the GitHub app on your repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.client.BeginInstallAppFlow(cmd.Context())
		},
	}
}
