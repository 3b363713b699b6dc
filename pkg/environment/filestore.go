// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"sigs.k8s.io/yaml"
)

// StateFile is the on-disk shape of a FileStore.
type StateFile struct {
	// Values holds the persisted entries, keyed by storage key.
	Values map[string]string `json:"values,omitempty"`
}

// FileStore is a Store persisted as a YAML document. Every write rewrites
// the whole file through a temporary file and rename, so a crash never
// leaves a partial document behind.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

var _ Store = (*FileStore)(nil)

// NewFileStore loads path if it exists. A missing file is an empty store.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, values: map[string]string{}}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fs, nil
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var state StateFile
	if err := yaml.UnmarshalStrict(data, &state); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if state.Values != nil {
		fs.values = state.Values
	}
	return fs, nil
}

func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	next := maps.Clone(f.values)
	next[key] = value
	if err := f.save(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; !ok {
		return nil
	}
	next := maps.Clone(f.values)
	delete(next, key)
	if err := f.save(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

func (f *FileStore) save(values map[string]string) error {
	data, err := yaml.Marshal(StateFile{Values: values})
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing state: %w", err)
	}
	return nil
}
