// Copyright 2025 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package secrets resolves named secrets, such as the prober's bearer
// token, from a configured backend.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"

	gcpSM "cloud.google.com/go/secretmanager/apiv1"
	"github.com/octo-sts/keymap/pkg/secrets/gcp"
)

type SecretProvider interface {
	GetSecret(ctx context.Context, keyID string) ([]byte, error)
}

const (
	// GCP resolves keyIDs as Secret Manager version names.
	GCP = "gcp"
	// Env resolves keyIDs as environment variable names. Meant for local
	// runs.
	Env = "env"
)

type secretProvider struct {
	provider         string
	gcpSecretManager *gcpSM.Client
}

func (s *secretProvider) GetSecret(ctx context.Context, keyID string) ([]byte, error) {
	switch s.provider {
	case GCP:
		return gcp.GetSecret(ctx, s.gcpSecretManager, keyID)
	case Env:
		v, ok := os.LookupEnv(keyID)
		if !ok || v == "" {
			return nil, fmt.Errorf("environment variable %s is not set", keyID)
		}
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported secret provider")
	}
}

func NewSecretProvider(ctx context.Context, provider string) (SecretProvider, error) {
	sp := &secretProvider{
		provider: provider,
	}

	switch provider {
	case GCP:
		client, err := gcpSM.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		sp.gcpSecretManager = client
		return sp, nil
	case Env:
		return sp, nil
	default:
		return nil, errors.New("unsupported secret provider")
	}
}
