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

package system

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/bundles/pkg/archive"
	"github.com/NVIDIA/bundles/pkg/archive/archivetest"
	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/config"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
	"github.com/NVIDIA/bundles/pkg/extension"
)

const (
	group        = "com.github.palindromicity"
	parserType   = "com.github.palindromicity.parsers.MessageParser"
	abstractFoo  = "com.github.palindromicity.bundles.AbstractFoo"
	fooParser    = "com.github.palindromicity.parsers.foo.FooParser"
	barParser    = "com.github.palindromicity.parsers.bar.BarParser"
	withProps    = "com.github.palindromicity.bundles.WithPropertiesConstructor"
	builtinEcho  = "com.github.palindromicity.parsers.EchoParser"
	failMarker   = "fail"
	primaryLib   = "lib"
	secondaryLib = "lib2"
)

type messageParser interface {
	Name() string
}

type namedParser string

func (p namedParser) Name() string { return string(p) }

var errIntentional = errors.New("intentional failure")

func testCatalog() *extension.Catalog {
	c := extension.NewCatalog()
	c.MustRegister(fooParser, extension.Factory{
		New: func(context.Context) (any, error) { return namedParser("foo"), nil },
	})
	c.MustRegister(barParser, extension.Factory{
		New: func(context.Context) (any, error) { return namedParser("bar"), nil },
	})
	c.MustRegister(withProps, extension.Factory{
		NewWithConfig: func(_ context.Context, cfg config.PropertySource) (any, error) {
			if _, ok := cfg.Property(failMarker); ok {
				return nil, errIntentional
			}
			return struct{ cfg config.PropertySource }{cfg}, nil
		},
	})
	c.MustRegister(builtinEcho, extension.Factory{
		New: func(context.Context) (any, error) { return namedParser("echo"), nil },
	})
	return c
}

func fooDescriptor() *bundle.Descriptor {
	return archivetest.Descriptor(group, "foo-lib-bundle", "0.1.0",
		bundle.ProviderSpec{Name: fooParser, Implements: []string{parserType}},
		bundle.ProviderSpec{Name: withProps, Implements: []string{abstractFoo}},
	)
}

func barDescriptor() *bundle.Descriptor {
	return archivetest.Descriptor(group, "bar-lib-bundle", "0.1.0",
		bundle.ProviderSpec{Name: barParser, Implements: []string{parserType}})
}

type env struct {
	base  string
	lib   string
	lib2  string
	props map[string]string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	base := t.TempDir()
	e := &env{
		base: base,
		lib:  filepath.Join(base, primaryLib),
		lib2: filepath.Join(base, secondaryLib),
	}
	archivetest.WriteBundle(t, e.lib, "foo-lib-bundle-0.1.0.bundle", fooDescriptor(), nil)
	e.props = map[string]string{
		config.KeyLibraryDirectory:                 e.lib,
		config.KeyWorkingDirectory:                 filepath.Join(base, "work"),
		config.KeyExtensionTypePrefix + "parser":   parserType,
		config.KeyExtensionTypePrefix + "abstract": abstractFoo,
	}
	return e
}

func (e *env) system(t *testing.T, extra map[string]string, opts ...Option) *System {
	t.Helper()
	props := config.NewProperties(e.props)
	for k, v := range extra {
		props.Set(k, v)
	}
	opts = append([]Option{WithProperties(props), WithCatalog(testCatalog())}, opts...)
	s, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func bundleCount(t *testing.T, s *System) int {
	t.Helper()
	bs, err := s.Bundles()
	require.NoError(t, err)
	// The system bundle is always present.
	return len(bs) - 1
}

func TestNew_RequiresProperties(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))

	_, err = New(WithProperties(config.NewProperties(nil)), WithWatchDebounce(0))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidRequest))
}

func TestSystem_NotInitialized(t *testing.T) {
	s := newEnv(t).system(t, nil)
	ctx := context.Background()

	checks := map[string]func() error{
		"CreateInstance":    func() error { _, err := s.CreateInstance(ctx, fooParser); return err },
		"ExtensionsForType": func() error { _, err := s.ExtensionsForType(parserType); return err },
		"AddBundle":         func() error { return s.AddBundle(ctx, "foo-lib-bundle-0.1.0.bundle") },
		"Bundles":           func() error { _, err := s.Bundles(); return err },
		"Watch":             func() error { _, err := s.Watch(ctx); return err },
	}
	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			err := check()
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotInitialized), "got %v", err)
		})
	}
}

func TestSystem_InitLifecycle(t *testing.T) {
	e := newEnv(t)
	s := e.system(t, nil)
	ctx := context.Background()

	require.NoError(t, s.Init(ctx))
	assert.Equal(t, 1, bundleCount(t, s))

	err := s.Init(ctx)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAlreadyInitialized))

	s.Reset()
	_, err = s.Bundles()
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotInitialized))

	require.NoError(t, s.Init(ctx))
	assert.Equal(t, 1, bundleCount(t, s))
}

func TestSystem_InitInvalidRoot(t *testing.T) {
	e := newEnv(t)
	file := filepath.Join(e.base, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	s := e.system(t, map[string]string{config.KeyLibraryDirectoryPrefix + "alt": file})
	err := s.Init(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidDiscoveryRoot))
	assert.False(t, s.Registry().Initialized())
}

func TestSystem_MultipleRoots(t *testing.T) {
	e := newEnv(t)
	archivetest.WriteBundle(t, e.lib2, "bar-lib-bundle-0.1.0.bundle", barDescriptor(), nil)
	s := e.system(t, map[string]string{config.KeyLibraryDirectoryPrefix + "alt": e.lib2})
	require.NoError(t, s.Init(context.Background()))

	names, err := s.ExtensionsForType(parserType)
	require.NoError(t, err)
	assert.Equal(t, []string{barParser, fooParser}, names)

	names, err = s.ExtensionsForType(abstractFoo)
	require.NoError(t, err)
	assert.Equal(t, []string{withProps}, names)
}

func TestSystem_CreateInstance(t *testing.T) {
	ctx := context.Background()
	s := newEnv(t).system(t, nil)
	require.NoError(t, s.Init(ctx))

	p, err := CreateInstance[messageParser](ctx, s, fooParser)
	require.NoError(t, err)
	assert.Equal(t, "foo", p.Name())

	v, err := s.CreateInstance(ctx, withProps)
	require.NoError(t, err)
	assert.NotNil(t, v)

	_, err = CreateInstance[messageParser](ctx, s, withProps)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInstantiation), "type mismatch")

	_, err = s.CreateInstance(ctx, barParser)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeClassNotFound), "bar is not loaded")

	_, err = s.CreateInstanceWithConfig(ctx, withProps, config.NewProperties(map[string]string{failMarker: "yes"}))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInstantiation))
}

func TestSystem_CreateInstanceFailMarker(t *testing.T) {
	ctx := context.Background()
	s := newEnv(t).system(t, map[string]string{failMarker: "true"})
	require.NoError(t, s.Init(ctx))

	v, err := s.CreateInstance(ctx, withProps)
	require.Error(t, err)
	assert.Nil(t, v)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInstantiation))
	assert.ErrorIs(t, err, errIntentional)
}

func TestSystem_AddBundle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	s := e.system(t, nil)
	require.NoError(t, s.Init(ctx))
	require.Equal(t, 1, bundleCount(t, s))

	// Copy a second archive into the primary root at runtime.
	src := archivetest.WriteBundle(t, e.lib2, "bar-lib-bundle-0.1.0.bundle", barDescriptor(), nil)
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(e.lib, "bar-lib-bundle-0.1.0.bundle"), data, 0o600))

	require.NoError(t, s.AddBundle(ctx, "bar-lib-bundle-0.1.0.bundle"))
	assert.Equal(t, 2, bundleCount(t, s))

	p, err := CreateInstance[messageParser](ctx, s, barParser)
	require.NoError(t, err)
	assert.Equal(t, "bar", p.Name())

	require.NoError(t, s.AddBundle(ctx, "bar-lib-bundle-0.1.0.bundle"))
	assert.Equal(t, 2, bundleCount(t, s), "adding a loaded bundle is a no-op")

	err = s.AddBundle(ctx, "missing.bundle")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeClassNotFound))

	archivetest.Write(t, filepath.Join(e.lib, "broken.bundle"), []byte("Bundle-Id: x\n"), nil)
	err = s.AddBundle(ctx, "broken.bundle")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMalformedArchive))
}

func TestSystem_AddBundleWithLoadedDependency(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	s := e.system(t, nil)
	require.NoError(t, s.Init(ctx))

	plugin := archivetest.DependsOn(
		archivetest.Descriptor(group, "foo-plugin", "0.1.0",
			bundle.ProviderSpec{Name: builtinEcho, Implements: []string{parserType}}),
		group, "foo-lib-bundle", "0.1.0")
	archivetest.WriteBundle(t, e.lib, "foo-plugin.bundle", plugin, nil)
	require.NoError(t, s.AddBundle(ctx, "foo-plugin.bundle"))

	b, err := s.Registry().BundleForCoordinate(plugin.Coordinate)
	require.NoError(t, err)
	assert.Equal(t, "foo-lib-bundle", b.Parent().ID)
	assert.Empty(t, s.Warnings())
}

func TestSystem_SystemProviders(t *testing.T) {
	ctx := context.Background()
	s := newEnv(t).system(t, nil, WithSystemProviders(bundle.ProviderSpec{
		Name:       builtinEcho,
		Implements: []string{parserType},
	}))
	require.NoError(t, s.Init(ctx))

	names, err := s.ExtensionsForType(parserType)
	require.NoError(t, err)
	assert.Equal(t, []string{builtinEcho, fooParser}, names)

	p, err := CreateInstance[messageParser](ctx, s, builtinEcho)
	require.NoError(t, err)
	assert.Equal(t, "echo", p.Name())
}

func TestSystem_ExplicitStoreAndRegistry(t *testing.T) {
	e := newEnv(t)
	store, err := archive.NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	reg := extension.NewRegistry()

	s := e.system(t, nil, WithArchiveStore(store), WithRegistry(reg), WithCapabilities("com.example.Extra"))
	require.NoError(t, s.Init(context.Background()))
	assert.True(t, reg.Initialized())
	assert.Same(t, store, s.Store())

	caps, err := reg.Capabilities()
	require.NoError(t, err)
	assert.Equal(t, extension.Capabilities("com.example.Extra", abstractFoo, parserType), caps)

	require.NoError(t, s.Close())
	_, err = os.Stat(store.SessionDir())
	assert.NoError(t, err, "a store passed in is not closed by the system")
}

func TestSystem_AddBundleWithPreinitializedRegistry(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	reg := extension.NewRegistry()
	root := bundle.NewRootContext(parserType)
	require.NoError(t, reg.Init(extension.Capabilities(parserType), bundle.NewSystemBundle(root), nil))

	s := e.system(t, nil, WithRegistry(reg))
	err := s.Init(ctx)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAlreadyInitialized))

	archivetest.WriteBundle(t, e.lib, "bar-lib-bundle-0.1.0.bundle", barDescriptor(), nil)
	require.NotPanics(t, func() {
		err = s.AddBundle(ctx, "bar-lib-bundle-0.1.0.bundle")
	})
	require.NoError(t, err)

	b, err := reg.BundleForCoordinate(barDescriptor().Coordinate)
	require.NoError(t, err)
	assert.Same(t, root, b.Context.Parent())

	names, err := s.ExtensionsForType(parserType)
	require.NoError(t, err)
	assert.Equal(t, []string{barParser}, names)
}

func TestSystem_Watch(t *testing.T) {
	e := newEnv(t)
	s := e.system(t, nil, WithWatchDebounce(50*time.Millisecond))
	require.NoError(t, s.Init(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	added, err := s.Watch(ctx)
	require.NoError(t, err)

	// Build outside the root, then move in so the archive appears complete.
	src := archivetest.WriteBundle(t, e.lib2, "bar-lib-bundle-0.1.0.bundle", barDescriptor(), nil)
	require.NoError(t, os.Rename(src, filepath.Join(e.lib, "bar-lib-bundle-0.1.0.bundle")))

	select {
	case name := <-added:
		assert.Equal(t, "bar-lib-bundle-0.1.0.bundle", name)
	case <-time.After(10 * time.Second):
		t.Fatal("watched archive was not added")
	}
	assert.Equal(t, 2, bundleCount(t, s))

	cancel()
	for range added {
	}
}
