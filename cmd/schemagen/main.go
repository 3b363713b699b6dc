// Copyright 2025 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

//go:generate go run . -o ../../docs/schema
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/octo-sts/keymap/pkg/api"
	"github.com/octo-sts/keymap/pkg/environment"
)

var outputFlag = flag.String("o", "", "output directory")

func main() {
	flag.Parse()

	if *outputFlag == "" {
		log.Fatal("output path is required")
	}
	if err := os.MkdirAll(*outputFlag, 0o755); err != nil {
		log.Fatal(err)
	}

	r := new(jsonschema.Reflector)
	for pkg, dir := range map[string]string{
		"github.com/octo-sts/keymap/pkg/api":         "../../pkg/api",
		"github.com/octo-sts/keymap/pkg/environment": "../../pkg/environment",
	} {
		if err := r.AddGoComments(pkg, dir); err != nil {
			log.Fatal(err)
		}
	}

	// Payloads exchanged with the backend, plus the CLI's state file.
	for _, t := range []any{
		api.InstallationInfo{},
		api.KeyboardFiles{},
		environment.StateFile{},
	} {
		if err := write(r, filepath.Join(*outputFlag, fmt.Sprintf("%T.json", t)), t); err != nil {
			log.Fatal(err)
		}
	}
}

func write(r *jsonschema.Reflector, path string, t any) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(r.Reflect(t))
}
