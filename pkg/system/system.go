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

// Package system composes discovery, the extension registry and instance
// construction behind a single facade.
//
// Typical use:
//
//	props, err := config.LoadProperties("bundle.properties", nil)
//	sys, err := system.New(
//	    system.WithProperties(props),
//	    system.WithCapabilities("com.example.parsers.MessageParser"),
//	)
//	defer sys.Close()
//
//	if err := sys.Init(ctx); err != nil {
//	    return err
//	}
//	parser, err := system.CreateInstance[parsers.MessageParser](ctx, sys, "com.example.parsers.FooParser")
package system

import (
	"context"
	"io"
	"slices"
	"sync"

	"github.com/NVIDIA/bundles/pkg/archive"
	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/config"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
	"github.com/NVIDIA/bundles/pkg/extension"
	"github.com/NVIDIA/bundles/pkg/locator"
	"github.com/NVIDIA/bundles/pkg/logging"
)

// System is the bundle system facade. Init, AddBundle and Reset are
// serialized; lookups and instance creation may run concurrently.
type System struct {
	opts      *Options
	props     config.PropertySource
	store     archive.Store
	ownsStore bool
	catalog   *extension.Catalog
	registry  *extension.Registry
	factory   *extension.InstanceFactory
	locator   *locator.Locator

	mu       sync.Mutex
	root     *bundle.LoadingContext
	warnings []error
}

// New builds a System. Properties are required.
func New(options ...Option) (*System, error) {
	opts := NewOptions(options...)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &System{
		opts:     opts,
		props:    opts.properties,
		store:    opts.store,
		catalog:  opts.catalog,
		registry: opts.registry,
	}
	if s.store == nil {
		fs, err := archive.NewFileStore(config.WorkingDirectory(s.props))
		if err != nil {
			return nil, err
		}
		s.store = fs
		s.ownsStore = true
	}
	if s.catalog == nil {
		s.catalog = extension.NewCatalogFromGlobal()
	}
	if s.registry == nil {
		s.registry = extension.NewRegistry()
	}
	s.factory = extension.NewInstanceFactory(s.registry, s.catalog)
	s.locator = locator.New(s.store, s.props)
	return s, nil
}

// Init discovers every bundle under the configured roots and initializes
// the registry. Per-bundle problems are logged and kept in Warnings.
func (s *System) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registry.Initialized() {
		return apperrors.New(apperrors.ErrCodeAlreadyInitialized, "bundle system already initialized")
	}
	log := logging.FromContext(ctx)

	capabilities := s.opts.Capabilities()
	system := s.systemBundle(capabilities)

	d, err := s.locator.Locate(ctx, config.LibraryDirectories(s.props))
	if err != nil {
		return err
	}
	set, problems := locator.BuildContexts(ctx, system.Context, d, nil)

	if err := s.registry.Init(capabilities, system, set.Bundles()); err != nil {
		return err
	}
	s.root = system.Context
	s.warnings = append(slices.Clone(d.Skipped), problems...)

	log.Info("bundle system initialized",
		"bundles", set.Len(),
		"capabilities", len(capabilities),
		"warnings", len(s.warnings),
	)
	return nil
}

func (s *System) systemBundle(capabilities []extension.Capability) *bundle.Bundle {
	providers := s.opts.SystemProviders()
	names := make([]string, 0, len(capabilities)+len(providers))
	for _, c := range capabilities {
		names = append(names, string(c))
	}
	for _, p := range providers {
		names = append(names, p.Name)
	}
	sys := bundle.NewSystemBundle(bundle.NewRootContext(names...))
	sys.Descriptor.Providers = providers
	return sys
}

func notInitialized() error {
	return apperrors.New(apperrors.ErrCodeNotInitialized, "bundle system not initialized")
}

// AddBundle loads the archive fileName from the primary root into the
// running system. Already loaded coordinates are left untouched.
func (s *System) AddBundle(ctx context.Context, fileName string) error {
	_, err := s.addBundle(ctx, fileName)
	return err
}

func (s *System) addBundle(ctx context.Context, fileName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Initialized() {
		return 0, notInitialized()
	}
	ctx = logging.WithAttrs(ctx, "archive", fileName)

	d, err := s.locator.LocateArchive(ctx, config.PrimaryLibraryDirectory(s.props), fileName)
	if err != nil {
		return 0, err
	}
	loaded, err := s.registry.Loaded()
	if err != nil {
		return 0, err
	}
	root, err := s.rootContext()
	if err != nil {
		return 0, err
	}
	set, problems := locator.BuildContexts(ctx, root, d, loaded)
	s.warnings = append(s.warnings, problems...)

	added, err := s.registry.Add(set.Bundles())
	if err != nil {
		return 0, err
	}
	logging.FromContext(ctx).Info("bundle added", "added", added, "bundles", s.registry.Len())
	return added, nil
}

// rootContext returns the root loading context. A registry initialized
// outside this System carries it on its system bundle.
func (s *System) rootContext() (*bundle.LoadingContext, error) {
	if s.root != nil {
		return s.root, nil
	}
	sys, err := s.registry.System()
	if err != nil {
		return nil, err
	}
	if sys == nil || sys.Context == nil {
		return nil, notInitialized()
	}
	s.root = sys.Context
	return s.root, nil
}

// CreateInstance constructs the provider name with the system properties
// as its configuration.
func (s *System) CreateInstance(ctx context.Context, name string) (any, error) {
	return s.factory.CreateInstance(ctx, name, s.props)
}

// CreateInstanceWithConfig constructs the provider name with cfg.
func (s *System) CreateInstanceWithConfig(ctx context.Context, name string, cfg config.PropertySource) (any, error) {
	return s.factory.CreateInstance(ctx, name, cfg)
}

// CreateInstance constructs name and checks that it is a T.
func CreateInstance[T any](ctx context.Context, s *System, name string) (T, error) {
	return extension.Create[T](ctx, s.factory, name, s.props)
}

// ExtensionsForType returns the provider names conforming to capability,
// sorted and de-duplicated.
func (s *System) ExtensionsForType(capability string) ([]string, error) {
	ps, err := s.registry.ProvidersFor(extension.Capability(capability))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.Name)
	}
	return slices.Compact(names), nil
}

// Bundles returns the loaded bundles, system bundle included.
func (s *System) Bundles() ([]*bundle.Bundle, error) {
	return s.registry.AllBundles()
}

// Warnings returns the per-bundle problems recorded since Init.
func (s *System) Warnings() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.warnings)
}

// Registry returns the underlying registry.
func (s *System) Registry() *extension.Registry {
	return s.registry
}

// Catalog returns the provider factory catalog.
func (s *System) Catalog() *extension.Catalog {
	return s.catalog
}

// Store returns the archive store.
func (s *System) Store() archive.Store {
	return s.store
}

// Reset returns the system to uninitialized. Extracted archives stay in
// the store until Close.
func (s *System) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.registry.Reset()
	s.root = nil
	s.warnings = nil
}

// Close resets the system and releases the archive store if the System
// created it.
func (s *System) Close() error {
	s.Reset()
	if !s.ownsStore {
		return nil
	}
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
