// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Kind names a session notification.
type Kind string

const (
	// Authenticated fires once the installation lookup succeeds.
	Authenticated Kind = "authenticated"
	// AppNotInstalled fires when the authenticated user has no
	// installation of the GitHub App.
	AppNotInstalled Kind = "app-not-installed"
	// AuthenticationFailed fires when any request is answered with 401.
	// The payload is the failed response.
	AuthenticationFailed Kind = "authentication-failed"
)

// Kinds is the set of notifications a Bus accepts.
var Kinds = sets.New(Authenticated, AppNotInstalled, AuthenticationFailed)

// Handler receives a notification payload. Payload is nil for
// Authenticated and AppNotInstalled.
type Handler func(ctx context.Context, payload any)

// Publisher is the half of the Bus the API client depends on.
type Publisher interface {
	Publish(ctx context.Context, kind Kind, payload any)
}

// Bus is an in-process publish/subscribe hub. The zero value is not
// usable; construct one with New.
type Bus struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[Kind]map[uint64]Handler
}

var _ Publisher = (*Bus)(nil)

func New() *Bus {
	return &Bus{
		handlers: make(map[Kind]map[uint64]Handler, Kinds.Len()),
	}
}

// Subscribe registers h for kind and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(kind Kind, h Handler) (func(), error) {
	if !Kinds.Has(kind) {
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	if h == nil {
		return nil, fmt.Errorf("nil handler for %q", kind)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[uint64]Handler)
	}
	b.handlers[kind][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[kind], id)
		})
	}, nil
}

// Publish delivers payload to every handler subscribed to kind at the time
// of the call. Handlers may subscribe or unsubscribe from within a
// callback.
func (b *Bus) Publish(ctx context.Context, kind Kind, payload any) {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.handlers[kind]))
	for _, h := range b.handlers[kind] {
		hs = append(hs, h)
	}
	b.mu.RUnlock()

	for _, h := range hs {
		h(ctx, payload)
	}
}
