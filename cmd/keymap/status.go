// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

type status struct {
	Authorized   bool     `json:"authorized"`
	Installed    bool     `json:"installed"`
	Installation int64    `json:"installation,omitempty"`
	Repositories []string `json:"repositories,omitempty"`
}

func newStatusCommand(s *session) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session and the repositories the app can access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := s.client.Init(cmd.Context()); err != nil {
				return err
			}
			st := status{
				Authorized: s.client.IsAuthorized(),
				Installed:  s.client.IsAppInstalled(),
			}
			if inst := s.client.Installation(); inst != nil {
				st.Installation = inst.GetID()
			}
			for _, r := range s.client.Repositories() {
				st.Repositories = append(st.Repositories, r.GetFullName())
			}
			return writeStatus(cmd.OutOrStdout(), output, st)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: yaml or json")
	return cmd
}

func writeStatus(w io.Writer, format string, st status) error {
	switch format {
	case "":
		fmt.Fprintf(w, "authorized: %t\ninstalled:  %t\n", st.Authorized, st.Installed)
		for _, r := range st.Repositories {
			fmt.Fprintf(w, "  %s\n", r)
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "yaml":
		b, err := yaml.Marshal(st)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
