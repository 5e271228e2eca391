// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/bundles/pkg/archive/archivetest"
	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/config"
	"github.com/NVIDIA/bundles/pkg/server"
	"github.com/NVIDIA/bundles/pkg/system"
)

const (
	group      = "com.example"
	parserType = "com.example.parsers.MessageParser"
	fooParser  = "com.example.parsers.FooParser"
)

func newSystem(t *testing.T, initialize bool) *system.System {
	t.Helper()
	base := t.TempDir()
	lib := filepath.Join(base, "lib")
	archivetest.WriteBundle(t, lib, "foo-lib-bundle-0.1.0.bundle",
		archivetest.Descriptor(group, "foo-lib-bundle", "0.1.0",
			bundle.ProviderSpec{Name: fooParser, Implements: []string{parserType}}), nil)

	props := config.NewProperties(map[string]string{
		config.KeyLibraryDirectory:               lib,
		config.KeyWorkingDirectory:               filepath.Join(base, "work"),
		config.KeyExtensionTypePrefix + "parser": parserType,
	})
	sys, err := system.New(system.WithProperties(props))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sys.Close() })

	if initialize {
		require.NoError(t, sys.Init(context.Background()))
	}
	return sys
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRoutes(t *testing.T) {
	routes := NewHandler(newSystem(t, true)).Routes()

	for _, pattern := range []string{
		"/v1/bundles",
		"/v1/bundles/{group}/{id}/{version}",
		"/v1/capabilities",
		"/v1/extensions",
		"/v1/providers/{name}",
		"/v1/warnings",
	} {
		assert.Contains(t, routes, pattern)
	}
	assert.Len(t, routes, 6)
}

func TestBundles(t *testing.T) {
	h := NewServer(newSystem(t, true)).Handler()

	w := get(t, h, "/v1/bundles")
	require.Equal(t, http.StatusOK, w.Code)

	list := decode[BundleList](t, w)
	require.Len(t, list.Bundles, 2)

	var found bool
	for _, b := range list.Bundles {
		if b.Coordinate == group+":foo-lib-bundle:0.1.0" {
			found = true
			assert.Equal(t, []string{fooParser}, b.Providers)
			assert.False(t, b.System)
		}
	}
	assert.True(t, found, "expected foo-lib-bundle in %+v", list.Bundles)
}

func TestBundleByCoordinate(t *testing.T) {
	h := NewServer(newSystem(t, true)).Handler()

	tests := []struct {
		name string
		path string
		want int
	}{
		{"found", "/v1/bundles/com.example/foo-lib-bundle/0.1.0", http.StatusOK},
		{"unknown", "/v1/bundles/com.example/nope/0.1.0", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, get(t, h, tt.path).Code)
		})
	}

	got := decode[BundleView](t, get(t, h, "/v1/bundles/com.example/foo-lib-bundle/0.1.0"))
	assert.Equal(t, group+":foo-lib-bundle:0.1.0", got.Coordinate)
}

func TestCapabilitiesAndExtensions(t *testing.T) {
	h := NewServer(newSystem(t, true)).Handler()

	caps := decode[CapabilityList](t, get(t, h, "/v1/capabilities"))
	assert.Equal(t, []string{parserType}, caps.Capabilities)

	w := get(t, h, "/v1/extensions?capability="+parserType)
	require.Equal(t, http.StatusOK, w.Code)
	ext := decode[ExtensionList](t, w)
	assert.Equal(t, []string{fooParser}, ext.Providers)

	ext = decode[ExtensionList](t, get(t, h, "/v1/extensions?capability=com.example.Unknown"))
	assert.Empty(t, ext.Providers)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/extensions").Code)
}

func TestProviders(t *testing.T) {
	h := NewServer(newSystem(t, true)).Handler()

	w := get(t, h, "/v1/providers/"+fooParser)
	require.Equal(t, http.StatusOK, w.Code)
	owners := decode[ProviderOwners](t, w)
	require.Len(t, owners.Owners, 1)
	assert.Equal(t, group+":foo-lib-bundle:0.1.0", owners.Owners[0].Coordinate)

	w = get(t, h, "/v1/providers/com.example.Missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CLASS_NOT_FOUND", decode[server.ErrorResponse](t, w).Code)
}

func TestWarnings(t *testing.T) {
	h := NewServer(newSystem(t, true)).Handler()

	w := get(t, h, "/v1/warnings")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[map[string][]string](t, w)["warnings"])
}

func TestNotInitialized(t *testing.T) {
	h := NewServer(newSystem(t, false)).Handler()

	for _, path := range []string{"/v1/bundles", "/v1/capabilities", "/v1/extensions?capability=x", "/v1/providers/x"} {
		t.Run(path, func(t *testing.T) {
			w := get(t, h, path)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			resp := decode[server.ErrorResponse](t, w)
			assert.Equal(t, "NOT_INITIALIZED", resp.Code)
			assert.True(t, resp.Retryable)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewServer(newSystem(t, true)).Handler()

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(method, "/v1/bundles", nil))
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, http.MethodGet, w.Header().Get("Allow"))
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	sys := newSystem(t, true)
	ctx, cancel := context.WithCancel(context.Background())

	cfg := server.NewConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownTimeout = 100 * time.Millisecond

	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, sys, WithWatch(true), WithServerOptions(server.WithConfig(cfg)))
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
