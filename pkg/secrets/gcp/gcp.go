// Copyright 2025 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package gcp

import (
	"bytes"
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// GetSecret returns the payload of the Secret Manager version keyID with
// surrounding whitespace removed. An empty payload is an error: a blank
// bearer token is never what the caller wants.
func GetSecret(ctx context.Context, client *secretmanager.Client, keyID string) ([]byte, error) {
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: keyID,
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching secret %s: %w", keyID, err)
	}
	data := bytes.TrimSpace(resp.GetPayload().GetData())
	if len(data) == 0 {
		return nil, fmt.Errorf("secret %s is empty", keyID)
	}
	return data, nil
}
