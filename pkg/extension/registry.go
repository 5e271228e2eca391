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

package extension

import (
	"slices"
	"strings"
	"sync"

	"github.com/NVIDIA/bundles/pkg/bundle"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
	"github.com/NVIDIA/bundles/pkg/version"
)

// Provider is one conforming provider found in a bundle.
type Provider struct {
	Name       string
	Capability Capability
	Bundle     *bundle.Bundle
	Spec       bundle.ProviderSpec
}

// Registry holds the loaded bundles and the lookup indices over them.
// Lookups are safe for concurrent use; Init, Reset, Merge and Add are
// serialized against them.
type Registry struct {
	mu          sync.RWMutex
	initialized bool

	capabilities map[Capability]struct{}
	system       *bundle.Bundle

	byName       map[string][]*bundle.Bundle
	byContext    map[*bundle.LoadingContext]*bundle.Bundle
	byCoordinate map[bundle.Coordinate]*bundle.Bundle
	providers    map[Capability][]Provider
}

// NewRegistry creates an uninitialized Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Init indexes system and bundles for the requested capabilities.
// Bundles sharing a coordinate keep the first occurrence.
func (r *Registry) Init(capabilities []Capability, system *bundle.Bundle, bundles []*bundle.Bundle) error {
	if system == nil {
		return apperrors.New(apperrors.ErrCodeInvalidRequest, "system bundle is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return apperrors.New(apperrors.ErrCodeAlreadyInitialized, "extension registry already initialized")
	}

	r.capabilities = make(map[Capability]struct{}, len(capabilities))
	for _, c := range capabilities {
		if c != "" {
			r.capabilities[c] = struct{}{}
		}
	}
	r.system = system
	r.byName = make(map[string][]*bundle.Bundle)
	r.byContext = make(map[*bundle.LoadingContext]*bundle.Bundle)
	r.byCoordinate = make(map[bundle.Coordinate]*bundle.Bundle)
	r.providers = make(map[Capability][]Provider)

	r.index(system)
	for _, b := range bundles {
		r.index(b)
	}
	r.initialized = true
	registryBundles.Set(float64(len(r.byCoordinate)))
	return nil
}

// Initialized reports whether Init has completed since the last Reset.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// Reset discards every index and returns the registry to uninitialized.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.initialized = false
	r.capabilities = nil
	r.system = nil
	r.byName = nil
	r.byContext = nil
	r.byCoordinate = nil
	r.providers = nil
	registryBundles.Set(0)
}

// index adds b unless its coordinate is known and reports whether it did.
// Callers hold the write lock.
func (r *Registry) index(b *bundle.Bundle) bool {
	if b == nil {
		return false
	}
	c := b.Coordinate()
	if _, ok := r.byCoordinate[c]; ok {
		return false
	}
	r.byCoordinate[c] = b
	r.byContext[b.Context] = b

	for _, p := range b.Descriptor.Providers {
		conforming := false
		for _, impl := range p.Implements {
			capability := Capability(impl)
			if !r.conforms(b, capability) {
				continue
			}
			conforming = true
			r.providers[capability] = insertProvider(r.providers[capability], Provider{
				Name:       p.Name,
				Capability: capability,
				Bundle:     b,
				Spec:       p,
			})
		}
		if conforming {
			r.byName[p.Name] = insertOwner(r.byName[p.Name], b)
		}
	}
	return true
}

func (r *Registry) conforms(b *bundle.Bundle, c Capability) bool {
	if _, ok := r.capabilities[c]; !ok {
		return false
	}
	return b.Context.CanSee(string(c))
}

// compareOwners orders bundles for ambiguous provider names: newest version
// first, unparsable versions after parsable ones, then group and id.
func compareOwners(a, b *bundle.Bundle) int {
	ac, bc := a.Coordinate(), b.Coordinate()
	if n := version.CompareStrings(bc.Version, ac.Version); n != 0 {
		return n
	}
	if n := strings.Compare(ac.Group, bc.Group); n != 0 {
		return n
	}
	return strings.Compare(ac.ID, bc.ID)
}

func insertOwner(owners []*bundle.Bundle, b *bundle.Bundle) []*bundle.Bundle {
	i, _ := slices.BinarySearchFunc(owners, b, compareOwners)
	return slices.Insert(owners, i, b)
}

func compareProviders(a, b Provider) int {
	if n := strings.Compare(a.Name, b.Name); n != 0 {
		return n
	}
	return compareOwners(a.Bundle, b.Bundle)
}

func insertProvider(ps []Provider, p Provider) []Provider {
	i, _ := slices.BinarySearchFunc(ps, p, compareProviders)
	return slices.Insert(ps, i, p)
}

func (r *Registry) checkInitialized() error {
	if !r.initialized {
		return apperrors.New(apperrors.ErrCodeNotInitialized, "extension registry not initialized")
	}
	return nil
}

// Bundles returns the bundles providing name, preferred owner first.
// The result is empty when no loaded bundle provides name.
func (r *Registry) Bundles(name string) ([]*bundle.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkInitialized(); err != nil {
		return nil, err
	}
	return slices.Clone(r.byName[name]), nil
}

// BundleForContext returns the bundle owning lc.
func (r *Registry) BundleForContext(lc *bundle.LoadingContext) (*bundle.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkInitialized(); err != nil {
		return nil, err
	}
	b, ok := r.byContext[lc]
	if !ok {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeNotFound,
			"no bundle owns loading context", map[string]any{"context": lc.String()})
	}
	return b, nil
}

// BundleForCoordinate returns the bundle with coordinate c.
func (r *Registry) BundleForCoordinate(c bundle.Coordinate) (*bundle.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkInitialized(); err != nil {
		return nil, err
	}
	b, ok := r.byCoordinate[c]
	if !ok {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeNotFound,
			"bundle not loaded", map[string]any{"coordinate": c.String()})
	}
	return b, nil
}

// ProvidersFor returns the providers conforming to c, ordered by name.
func (r *Registry) ProvidersFor(c Capability) ([]Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkInitialized(); err != nil {
		return nil, err
	}
	return slices.Clone(r.providers[c]), nil
}

// Capabilities returns the requested capabilities, sorted.
func (r *Registry) Capabilities() ([]Capability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkInitialized(); err != nil {
		return nil, err
	}
	out := make([]Capability, 0, len(r.capabilities))
	for c := range r.capabilities {
		out = append(out, c)
	}
	slices.Sort(out)
	return out, nil
}

// System returns the system bundle.
func (r *Registry) System() (*bundle.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkInitialized(); err != nil {
		return nil, err
	}
	return r.system, nil
}

// AllBundles returns every indexed bundle, the system bundle included,
// ordered by coordinate.
func (r *Registry) AllBundles() ([]*bundle.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkInitialized(); err != nil {
		return nil, err
	}
	out := make([]*bundle.Bundle, 0, len(r.byCoordinate))
	for _, b := range r.byCoordinate {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b *bundle.Bundle) int {
		return a.Coordinate().Compare(b.Coordinate())
	})
	return out, nil
}

// Loaded returns the coordinate index as a map copy.
func (r *Registry) Loaded() (map[bundle.Coordinate]*bundle.Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.checkInitialized(); err != nil {
		return nil, err
	}
	out := make(map[bundle.Coordinate]*bundle.Bundle, len(r.byCoordinate))
	for c, b := range r.byCoordinate {
		out[c] = b
	}
	return out, nil
}

// Len returns the number of indexed bundles including the system bundle,
// or zero before Init.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byCoordinate)
}

// Add indexes bundles whose coordinates are not yet present and returns
// how many were added. Adding the same bundles again adds nothing.
func (r *Registry) Add(bundles []*bundle.Bundle) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkInitialized(); err != nil {
		return 0, err
	}
	added := 0
	for _, b := range bundles {
		if r.index(b) {
			added++
		}
	}
	registryBundles.Set(float64(len(r.byCoordinate)))
	return added, nil
}

// Merge adds the bundles of other to r, keeping r's entry when both hold a
// coordinate. Only r is modified. Both registries must be initialized.
func (r *Registry) Merge(other *Registry) (int, error) {
	if other == r {
		return 0, nil
	}
	bundles, err := other.AllBundles()
	if err != nil {
		return 0, err
	}
	return r.Add(bundles)
}
