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
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/config"
)

// Capability names a contract providers can satisfy.
type Capability string

// String implements fmt.Stringer.
func (c Capability) String() string {
	return string(c)
}

// Capabilities converts names to capabilities.
func Capabilities(names ...string) []Capability {
	out := make([]Capability, len(names))
	for i, n := range names {
		out[i] = Capability(n)
	}
	return out
}

// Factory constructs one provider. NewWithConfig is preferred when set;
// New is the fallback. A Factory with neither cannot construct anything.
type Factory struct {
	New           func(ctx context.Context) (any, error)
	NewWithConfig func(ctx context.Context, cfg config.PropertySource) (any, error)
}

// Viable reports whether f has at least one constructor.
func (f Factory) Viable() bool {
	return f.New != nil || f.NewWithConfig != nil
}

// Global catalog for provider factories.
// Provider packages register themselves via init() functions.
var (
	globalFactories = make(map[string]Factory)
	globalMu        sync.RWMutex
)

// Register registers a factory globally under a provider name.
// Returns an error if the name is already registered.
func Register(name string, f Factory) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if _, exists := globalFactories[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	globalFactories[name] = f
	return nil
}

// MustRegister is Register that panics on error.
// Use this in init() functions where registration must succeed.
func MustRegister(name string, f Factory) {
	if err := Register(name, f); err != nil {
		panic(err)
	}
}

// GlobalNames returns all globally registered provider names, sorted.
func GlobalNames() []string {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return slices.Sorted(maps.Keys(globalFactories))
}

// NewCatalogFromGlobal creates a Catalog holding every globally registered
// factory.
func NewCatalogFromGlobal() *Catalog {
	globalMu.RLock()
	defer globalMu.RUnlock()

	c := NewCatalog()
	for name, f := range globalFactories {
		c.shared[name] = f
	}
	return c
}

type scopedKey struct {
	owner bundle.Coordinate
	name  string
}

// Catalog maps provider names to factories. Scoped entries belong to one
// bundle and take precedence over shared entries for that bundle, which
// lets two bundles ship different implementations under the same name.
type Catalog struct {
	mu     sync.RWMutex
	shared map[string]Factory
	scoped map[scopedKey]Factory
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		shared: make(map[string]Factory),
		scoped: make(map[scopedKey]Factory),
	}
}

// Register adds a shared factory.
func (c *Catalog) Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.shared[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}
	c.shared[name] = f
	return nil
}

// MustRegister is Register that panics on error.
func (c *Catalog) MustRegister(name string, f Factory) {
	if err := c.Register(name, f); err != nil {
		panic(err)
	}
}

// RegisterScoped adds a factory visible only to the bundle owner.
func (c *Catalog) RegisterScoped(owner bundle.Coordinate, name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("provider name is required")
	}
	if err := owner.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := scopedKey{owner: owner, name: name}
	if _, exists := c.scoped[key]; exists {
		return fmt.Errorf("provider %s already registered for %s", name, owner)
	}
	c.scoped[key] = f
	return nil
}

// Lookup returns the factory used to construct name on behalf of owner.
func (c *Catalog) Lookup(owner bundle.Coordinate, name string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if f, ok := c.scoped[scopedKey{owner: owner, name: name}]; ok {
		return f, true
	}
	f, ok := c.shared[name]
	return f, ok
}

// Unregister removes a shared factory.
func (c *Catalog) Unregister(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.shared[name]; !ok {
		return fmt.Errorf("provider %s not registered", name)
	}
	delete(c.shared, name)
	return nil
}

// Names returns the shared provider names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.shared))
}

// Count returns the number of shared and scoped factories.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shared) + len(c.scoped)
}
