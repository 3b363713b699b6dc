// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0
package tokensource

import (
	"context"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/octo-sts/keymap/pkg/secrets"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// DefaultInterval is how long a token read from the secret provider is
// reused before it is read again.
const DefaultInterval = 45 * time.Minute

type TokenSource struct {
	ctx       context.Context
	keyID     string
	secrets   secrets.SecretProvider
	sometimes rate.Sometimes

	// Output fields.
	tok *oauth2.Token
	err error
}

var _ oauth2.TokenSource = (*TokenSource)(nil)

// NewTokenSource returns a TokenSource that reads the backend bearer
// token stored under keyID, re-reading it at most once per interval.
func NewTokenSource(ctx context.Context, sp secrets.SecretProvider, keyID string, interval time.Duration) *TokenSource {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &TokenSource{
		ctx:       ctx,
		keyID:     keyID,
		secrets:   sp,
		sometimes: rate.Sometimes{Interval: interval},
	}
}

// Token returns the bearer token. A failed read is remembered until the
// next refresh.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.sometimes.Do(func() {
		clog.FromContext(ts.ctx).Debugf("reading bearer token from %s", ts.keyID)
		data, err := ts.secrets.GetSecret(ts.ctx, ts.keyID)

		// Explicitly set the token to nil rather than a struct with an empty
		// token field
		if err != nil {
			ts.tok, ts.err = nil, err
			return
		}
		ts.tok, ts.err = &oauth2.Token{
			TokenType:   "Bearer",
			AccessToken: string(data),
		}, nil
	})
	return ts.tok, ts.err
}
