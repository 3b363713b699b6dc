// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCommand(defaultCEClient).ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1) //nolint:gocritic
	}
}
