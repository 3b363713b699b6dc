// Copyright 2024 Chainguard, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/octo-sts/keymap/pkg/events"
	"github.com/stretchr/testify/assert"
)

func TestInitWithoutToken(t *testing.T) {
	f := newFixture(t, "https://keymap.example/editor")
	f.backend.handleInstalled("org/keyboard")

	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}

	assert.False(t, f.client.IsAuthorized())
	assert.False(t, f.client.IsAppInstalled())
	assert.Empty(t, f.backend.Requests())
	assert.Equal(t, 0, f.events.count(events.Authenticated))
}

func TestInitAdoptsTokenParam(t *testing.T) {
	f := newFixture(t, "https://keymap.example/editor?token=abc123")
	f.backend.handleInstalled("org/keyboard")

	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}

	stored, ok, _ := f.env.Get(StorageKey)
	assert.True(t, ok)
	assert.Equal(t, "abc123", stored)
	assert.Equal(t, "https://keymap.example/editor", f.env.Location().String())
	assert.Empty(t, f.env.Navigations(), "stripping the token must not navigate")

	reqs := f.backend.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests: got = %d, wanted = 1", len(reqs))
	}
	assert.Equal(t, "/github/installation", reqs[0].URL.Path)
	assert.Equal(t, "Bearer abc123", reqs[0].Header.Get("Authorization"))
	assert.True(t, f.client.IsAuthorized())
	assert.Equal(t, 1, f.events.count(events.Authenticated))
}

func TestInitPrefersStoredToken(t *testing.T) {
	f := newFixture(t, "https://keymap.example/editor?token=fresh")
	f.backend.handleInstalled("org/keyboard")
	if err := f.env.Set(StorageKey, "stored"); err != nil {
		t.Fatal(err)
	}

	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}

	reqs := f.backend.Requests()
	if len(reqs) != 1 {
		t.Fatalf("requests: got = %d, wanted = 1", len(reqs))
	}
	assert.Equal(t, "Bearer stored", reqs[0].Header.Get("Authorization"))
	assert.Empty(t, f.env.Replacements(), "address should be left alone")
}

func TestInitOnce(t *testing.T) {
	f := newFixture(t, "")
	f.backend.handleInstalled("org/keyboard")
	f.env.Set(StorageKey, "abc123")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.client.Init(f.ctx)
		}()
	}
	wg.Wait()
	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}

	assert.Equal(t, 1, f.backend.count("/github/installation"))
	assert.Equal(t, 1, f.events.count(events.Authenticated))
}

func TestInitOnceAfterFailure(t *testing.T) {
	f := newFixture(t, "")
	f.backend.mux.HandleFunc("GET /github/installation", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	f.env.Set(StorageKey, "abc123")

	if err := f.client.Init(f.ctx); StatusCode(err) != http.StatusInternalServerError {
		t.Fatalf("Init() = %v, wanted a 500", err)
	}
	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("second Init() = %v, wanted nil", err)
	}
	assert.Equal(t, 1, f.backend.count("/github/installation"))
}

func TestInitAppNotInstalled(t *testing.T) {
	f := newFixture(t, "")
	f.backend.mux.HandleFunc("GET /github/installation", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"installation": null, "repositories": null}`))
	})
	f.env.Set(StorageKey, "abc123")

	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}

	assert.True(t, f.client.IsAuthorized())
	assert.False(t, f.client.IsAppInstalled())
	assert.Nil(t, f.client.Installation())
	assert.Equal(t, 1, f.events.count(events.Authenticated))
	assert.Equal(t, 1, f.events.count(events.AppNotInstalled))
}

func TestInitInstallationWithoutRepositories(t *testing.T) {
	f := newFixture(t, "")
	f.backend.mux.HandleFunc("GET /github/installation", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"installation": {"id": 1234}, "repositories": []}`))
	})
	f.env.Set(StorageKey, "abc123")

	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	assert.False(t, f.client.IsAppInstalled())
	assert.Equal(t, 0, f.events.count(events.AppNotInstalled))
}

func TestInitRepositoriesWithoutInstallation(t *testing.T) {
	f := newFixture(t, "")
	f.backend.mux.HandleFunc("GET /github/installation", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"installation": null, "repositories": [{"full_name": "org/keyboard"}]}`))
	})
	f.env.Set(StorageKey, "abc123")

	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	assert.Empty(t, f.client.Repositories(), "repositories are meaningless without an installation")
}

func TestInitAppInstalled(t *testing.T) {
	f := newFixture(t, "")
	f.backend.handleInstalled("org/keyboard", "org/other")
	f.env.Set(StorageKey, "abc123")

	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}

	assert.True(t, f.client.IsAppInstalled())
	assert.Equal(t, int64(1234), f.client.Installation().GetID())
	var got []string
	for _, r := range f.client.Repositories() {
		got = append(got, r.GetFullName())
	}
	if diff := cmp.Diff([]string{"org/keyboard", "org/other"}, got); diff != "" {
		t.Errorf("repositories (-want +got): %s", diff)
	}
	assert.Equal(t, 0, f.events.count(events.AppNotInstalled))
}

func TestInitUnauthorized(t *testing.T) {
	f := newFixture(t, "")
	f.backend.mux.HandleFunc("GET /github/installation", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})
	f.env.Set(StorageKey, "expired")

	err := f.client.Init(f.ctx)
	var rerr *ResponseError
	if !errors.As(err, &rerr) || rerr.Response.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Init() = %v, wanted a 401", err)
	}
	assert.Equal(t, 1, f.events.count(events.AuthenticationFailed))
	assert.Equal(t, 0, f.events.count(events.Authenticated))
}

func TestBeginLoginFlow(t *testing.T) {
	f := newFixture(t, "")
	f.backend.handleInstalled("org/keyboard")
	f.env.Set(StorageKey, "abc123")
	if err := f.client.Init(f.ctx); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	assert.True(t, f.client.IsAppInstalled())

	if err := f.client.BeginLoginFlow(f.ctx); err != nil {
		t.Fatalf("BeginLoginFlow() = %v", err)
	}

	_, ok, _ := f.env.Get(StorageKey)
	assert.False(t, ok, "token should be cleared")
	assert.False(t, f.client.IsAuthorized())
	assert.False(t, f.client.IsAppInstalled())
	assert.Nil(t, f.client.Installation())
	assert.Empty(t, f.client.Repositories())
	assert.Equal(t, []string{f.backend.URL + "/github/authorize"}, f.env.Navigations())
}

func TestBeginInstallAppFlow(t *testing.T) {
	f := newFixture(t, "")
	f.env.Set(StorageKey, "abc123")

	if err := f.client.BeginInstallAppFlow(f.ctx); err != nil {
		t.Fatalf("BeginInstallAppFlow() = %v", err)
	}

	assert.Equal(t, []string{"https://github.com/apps/keymap-editor/installations/new"}, f.env.Navigations())
	stored, _, _ := f.env.Get(StorageKey)
	assert.Equal(t, "abc123", stored, "install flow must not touch local state")
}
