// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"sync"
)

// Memory is an Environment that keeps everything in process. It records
// navigations and address replacements so tests can assert on them.
type Memory struct {
	mu          sync.Mutex
	location    *url.URL
	values      map[string]string
	navigations []string
	replaced    []string
}

var _ Environment = (*Memory)(nil)

// NewMemory returns a Memory positioned at location, which may be empty.
func NewMemory(location string) (*Memory, error) {
	m := &Memory{values: map[string]string{}}
	if location != "" {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("parsing location: %w", err)
		}
		m.location = u
	}
	return m, nil
}

func (m *Memory) Location() *url.URL {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.location == nil {
		return nil
	}
	u := *m.location
	return &u
}

func (m *Memory) ReplaceURL(u string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var base url.URL
	if m.location != nil {
		base = *m.location
	}
	next, err := base.Parse(u)
	if err != nil {
		return fmt.Errorf("parsing replacement %q: %w", u, err)
	}
	m.location = next
	m.replaced = append(m.replaced, next.String())
	return nil
}

func (m *Memory) Navigate(_ context.Context, u string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigations = append(m.navigations, u)
	return nil
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Navigations returns every address passed to Navigate, oldest first.
func (m *Memory) Navigations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.navigations...)
}

// Replacements returns every address set through ReplaceURL.
func (m *Memory) Replacements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.replaced...)
}

// Values returns a snapshot of the store.
func (m *Memory) Values() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.values)
}
