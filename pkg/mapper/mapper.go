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

// Package mapper builds an extension mapping (capability to provider names)
// directly from discovery, without initializing an extension registry.
//
// Map distinguishes a misconfigured discovery root from an empty one: the
// first returns a nil mapping and an INVALID_DISCOVERY_ROOT error, the
// second an empty mapping.
package mapper

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/NVIDIA/bundles/pkg/archive"
	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/config"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
	"github.com/NVIDIA/bundles/pkg/locator"
	"github.com/NVIDIA/bundles/pkg/logging"
)

// Mapping is a mutable table from capability names to provider names, with
// optional per-provider configuration schemas. It is safe for concurrent use.
type Mapping struct {
	mu         sync.RWMutex
	providers  map[string]map[string]struct{}
	schemaRefs map[string]string
	schemas    map[string]*jsonschema.Schema
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{
		providers:  make(map[string]map[string]struct{}),
		schemaRefs: make(map[string]string),
		schemas:    make(map[string]*jsonschema.Schema),
	}
}

// Add records provider as an implementation of capability.
func (m *Mapping) Add(capability, provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(capability, provider)
}

func (m *Mapping) add(capability, provider string) {
	set, ok := m.providers[capability]
	if !ok {
		set = make(map[string]struct{})
		m.providers[capability] = set
	}
	set[provider] = struct{}{}
}

// SetSchema attaches a compiled configuration schema to provider.
func (m *Mapping) SetSchema(provider, ref string, s *jsonschema.Schema) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemaRefs[provider] = ref
	m.schemas[provider] = s
}

// Merge adds every entry of other. Schemas already present are kept.
func (m *Mapping) Merge(other *Mapping) {
	if other == nil || other == m {
		return
	}
	// Never hold both locks.
	other.mu.RLock()
	providers := make(map[string][]string, len(other.providers))
	for c, set := range other.providers {
		providers[c] = slices.Collect(maps.Keys(set))
	}
	refs := maps.Clone(other.schemaRefs)
	schemas := maps.Clone(other.schemas)
	other.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	for c, ps := range providers {
		for _, p := range ps {
			m.add(c, p)
		}
	}
	for p, ref := range refs {
		if _, ok := m.schemaRefs[p]; !ok {
			m.schemaRefs[p] = ref
			m.schemas[p] = schemas[p]
		}
	}
}

// ExtensionNames returns provider name to capability name. A provider
// implementing several capabilities maps to the lexically first one.
func (m *Mapping) ExtensionNames() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string)
	for _, c := range slices.Sorted(maps.Keys(m.providers)) {
		for p := range m.providers[c] {
			if _, ok := out[p]; !ok {
				out[p] = c
			}
		}
	}
	return out
}

// Providers returns the providers of capability, sorted.
func (m *Mapping) Providers(capability string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.providers[capability]))
}

// Capabilities returns the capabilities with at least one provider, sorted.
func (m *Mapping) Capabilities() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.providers))
}

// Size returns the number of distinct providers.
func (m *Mapping) Size() int {
	return len(m.ExtensionNames())
}

// SchemaRef returns the schema reference recorded for provider.
func (m *Mapping) SchemaRef(provider string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.schemaRefs[provider]
	return ref, ok
}

// ValidateConfig validates value against provider's schema. Providers
// without a schema accept any value.
func (m *Mapping) ValidateConfig(provider string, value any) error {
	m.mu.RLock()
	s := m.schemas[provider]
	m.mu.RUnlock()

	if s == nil {
		return nil
	}
	if err := s.Validate(value); err != nil {
		return apperrors.WrapWithContext(apperrors.ErrCodeInvalidRequest,
			"provider configuration does not match its schema", err,
			map[string]any{"provider": provider})
	}
	return nil
}

// ValidateProperties validates a property source as a flat object of
// string values.
func (m *Mapping) ValidateProperties(provider string, ps config.PropertySource) error {
	obj := make(map[string]any)
	for _, k := range ps.Keys() {
		v, _ := ps.Property(k)
		obj[k] = v
	}
	return m.ValidateConfig(provider, obj)
}

// Map discovers the bundles under the roots configured in props and maps
// their providers of the given capabilities. With no capabilities the
// contracts declared under bundle.extension.type.* are used.
func Map(ctx context.Context, store archive.Store, props config.PropertySource, capabilities ...string) (*Mapping, error) {
	if len(capabilities) == 0 {
		for _, c := range config.ExtensionTypes(props) {
			capabilities = append(capabilities, c)
		}
		slices.Sort(capabilities)
	}

	d, err := locator.New(store, props).Locate(ctx, config.LibraryDirectories(props))
	if err != nil {
		return nil, err
	}

	root := bundle.NewRootContext(capabilities...)
	set, _ := locator.BuildContexts(ctx, root, d, nil)

	m := NewMapping()
	for _, b := range set.Bundles() {
		mapBundle(ctx, store, m, b, capabilities)
	}
	return m, nil
}

func mapBundle(ctx context.Context, store archive.Store, m *Mapping, b *bundle.Bundle, capabilities []string) {
	log := logging.FromContext(ctx)
	for _, p := range b.Descriptor.Providers {
		mapped := false
		for _, c := range capabilities {
			if p.Satisfies(c) && b.Context.CanSee(c) {
				m.Add(c, p.Name)
				mapped = true
			}
		}
		if !mapped || p.Schema == "" {
			continue
		}
		s, ref, err := compileSchema(store, b, p.Schema)
		if err != nil {
			log.Warn("ignoring provider schema",
				"provider", p.Name, "coordinate", b.String(), "schema", p.Schema, "error", err)
			continue
		}
		m.SetSchema(p.Name, ref, s)
	}
}

func compileSchema(store archive.Store, b *bundle.Bundle, path string) (*jsonschema.Schema, string, error) {
	data, err := store.ReadFile(b.Dir, path)
	if err != nil {
		return nil, "", err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal JSON schema: %w", err)
	}

	ref := fmt.Sprintf("bundle://%s/%s/%s/%s", b.Coordinate().Group, b.Coordinate().ID, b.Coordinate().Version, path)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(ref, doc); err != nil {
		return nil, "", fmt.Errorf("failed to add resource: %w", err)
	}
	s, err := compiler.Compile(ref)
	if err != nil {
		return nil, "", fmt.Errorf("failed to compile schema: %w", err)
	}
	return s, ref, nil
}
