// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/octo-sts/keymap/pkg/api"
	"github.com/spf13/cobra"
)

func newBranchesCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:     "branches REPO",
		Short:   "List the branches of a repository",
		Example: "keymap branches octocat/corne",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := s.restore(ctx); err != nil {
				return err
			}
			branches, err := s.client.FetchRepoBranches(ctx, args[0])
			if err != nil {
				return err
			}
			for _, b := range branches {
				fmt.Fprintln(cmd.OutOrStdout(), b.GetName())
			}
			return nil
		},
	}
}

func newFetchCommand(s *session) *cobra.Command {
	var branch, output string
	cmd := &cobra.Command{
		Use:     "fetch REPO",
		Short:   "Download the layout and keymap of a repository",
		Example: "keymap fetch octocat/corne --branch main -o corne.json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := s.restore(ctx); err != nil {
				return err
			}
			files, err := s.client.FetchLayoutAndKeymap(ctx, args[0], branch)
			if err != nil {
				return err
			}
			if files.Problem != nil {
				return fmt.Errorf("the backend could not load the keyboard files: %s", files.Problem)
			}

			b, err := json.MarshalIndent(files, "", "  ")
			if err != nil {
				return err
			}
			b = append(b, '\n')
			if output == "" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			return os.WriteFile(output, b, 0o644)
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "branch to read, defaults to the repository's default branch")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write, defaults to stdout")
	return cmd
}

func newCommitCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:     "commit REPO BRANCH FILE",
		Short:   "Commit a layout and keymap to a branch",
		Long:    "commit reads a document of the shape written by `keymap fetch` and commits it to BRANCH.",
		Example: "keymap commit octocat/corne main corne.json",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[2])
			if err != nil {
				return err
			}
			var files api.KeyboardFiles
			if err := json.Unmarshal(data, &files); err != nil {
				return fmt.Errorf("parsing %s: %w", args[2], err)
			}
			if len(files.Layout) == 0 || len(files.Keymap) == 0 {
				return fmt.Errorf("%s must contain both a layout and a keymap", args[2])
			}

			ctx := cmd.Context()
			if err := s.restore(ctx); err != nil {
				return err
			}
			resp, err := s.client.CommitChanges(ctx, args[0], args[1], files.Layout, files.Keymap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
			return nil
		},
	}
}
