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
	"slices"
	"time"

	"github.com/NVIDIA/bundles/pkg/archive"
	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/config"
	"github.com/NVIDIA/bundles/pkg/defaults"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
	"github.com/NVIDIA/bundles/pkg/extension"
)

// DefaultWatchDebounce is the quiet period before a changed root is rescanned.
const DefaultWatchDebounce = defaults.WatchDebounce

// Options configures a System. Use the With* functions to build it.
type Options struct {
	// properties is the configuration source for roots, extension and prefix.
	properties config.PropertySource

	// store reads archives; a FileStore under the working directory when unset.
	store archive.Store

	// catalog holds provider factories; the global catalog when unset.
	catalog *extension.Catalog

	// registry is the registry to initialize; a new one when unset.
	registry *extension.Registry

	// capabilities are the contracts providers are indexed for.
	capabilities []extension.Capability

	// systemProviders are providers built into the host, owned by the
	// system bundle.
	systemProviders []bundle.ProviderSpec

	// watchDebounce delays rescans triggered by Watch.
	watchDebounce time.Duration
}

// Properties returns the configuration source.
func (o *Options) Properties() config.PropertySource {
	return o.properties
}

// Capabilities returns the explicit capabilities merged with the ones
// declared in configuration, sorted and de-duplicated.
func (o *Options) Capabilities() []extension.Capability {
	out := slices.Clone(o.capabilities)
	if o.properties != nil {
		for _, c := range config.ExtensionTypes(o.properties) {
			out = append(out, extension.Capability(c))
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// SystemProviders returns a copy of the host-owned providers.
func (o *Options) SystemProviders() []bundle.ProviderSpec {
	return slices.Clone(o.systemProviders)
}

// WatchDebounce returns the watch debounce period.
func (o *Options) WatchDebounce() time.Duration {
	return o.watchDebounce
}

// Validate checks that the options can build a System.
func (o *Options) Validate() error {
	if o.properties == nil {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "properties are required")
	}
	if o.watchDebounce <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "watch debounce must be positive")
	}
	return nil
}

// Option mutates Options.
type Option func(*Options)

// WithProperties sets the configuration source.
func WithProperties(ps config.PropertySource) Option {
	return func(o *Options) {
		o.properties = ps
	}
}

// WithArchiveStore sets the archive store. The System does not close a
// store it did not create.
func WithArchiveStore(s archive.Store) Option {
	return func(o *Options) {
		o.store = s
	}
}

// WithCatalog sets the provider factory catalog.
func WithCatalog(c *extension.Catalog) Option {
	return func(o *Options) {
		o.catalog = c
	}
}

// WithRegistry sets the registry the System initializes.
func WithRegistry(r *extension.Registry) Option {
	return func(o *Options) {
		o.registry = r
	}
}

// WithCapabilities adds capability contracts.
func WithCapabilities(capabilities ...string) Option {
	return func(o *Options) {
		o.capabilities = append(o.capabilities, extension.Capabilities(capabilities...)...)
	}
}

// WithSystemProviders adds providers owned by the system bundle.
func WithSystemProviders(providers ...bundle.ProviderSpec) Option {
	return func(o *Options) {
		o.systemProviders = append(o.systemProviders, providers...)
	}
}

// WithWatchDebounce sets the debounce period used by Watch.
func WithWatchDebounce(d time.Duration) Option {
	return func(o *Options) {
		o.watchDebounce = d
	}
}

// NewOptions returns Options with defaults applied before options.
func NewOptions(options ...Option) *Options {
	o := &Options{
		watchDebounce: DefaultWatchDebounce,
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}
