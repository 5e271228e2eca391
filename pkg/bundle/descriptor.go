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

package bundle

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/NVIDIA/bundles/pkg/errors"
)

// ManifestPath is the location of the descriptor inside an archive.
const ManifestPath = "META-INF/bundle-manifest.yaml"

// Descriptor key suffixes; the configured meta id prefix and a '-' precede each.
const (
	keyGroup             = "Group"
	keyID                = "Id"
	keyVersion           = "Version"
	keyDependencyGroup   = "Dependency-Group"
	keyDependencyID      = "Dependency-Id"
	keyDependencyVersion = "Dependency-Version"
	keyProviders         = "Providers"
	keyNames             = "Names"

	keyBuiltBy        = "Built-By"
	keyBuildTimestamp = "Build-Timestamp"
)

// ProviderSpec declares one provider and the capability contracts it satisfies.
type ProviderSpec struct {
	Name       string   `json:"name" yaml:"name"`
	Implements []string `json:"implements,omitempty" yaml:"implements,omitempty"`
	// Schema optionally points at a JSON schema inside the archive that
	// describes the provider's configuration.
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Satisfies reports whether the provider declares the capability.
func (p ProviderSpec) Satisfies(capability string) bool {
	return slices.Contains(p.Implements, capability)
}

// BuildInfo carries optional manifest build metadata.
type BuildInfo struct {
	BuiltBy   string `json:"builtBy,omitempty" yaml:"builtBy,omitempty"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Descriptor is the parsed manifest of one archive. It is immutable once parsed.
type Descriptor struct {
	Coordinate Coordinate     `json:"coordinate" yaml:"coordinate"`
	Dependency *Coordinate    `json:"dependency,omitempty" yaml:"dependency,omitempty"`
	Providers  []ProviderSpec `json:"providers,omitempty" yaml:"providers,omitempty"`
	Names      []string       `json:"names,omitempty" yaml:"names,omitempty"`
	Build      BuildInfo      `json:"build,omitempty" yaml:"build,omitempty"`
}

// ParseDescriptor parses manifest data using the given key prefix.
// All failures carry ErrCodeMalformedArchive, except a bundle declaring
// itself as its dependency, which carries ErrCodeCyclicDependency.
func ParseDescriptor(data []byte, prefix string) (*Descriptor, error) {
	if prefix == "" {
		prefix = "Bundle"
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeMalformedArchive, "failed to decode bundle descriptor", err)
	}
	if len(raw) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeMalformedArchive, "bundle descriptor is empty")
	}

	key := func(suffix string) string { return prefix + "-" + suffix }

	scalar := func(k string) (string, error) {
		node, ok := raw[k]
		if !ok {
			return "", nil
		}
		if node.Kind != yaml.ScalarNode {
			return "", apperrors.NewWithContext(apperrors.ErrCodeMalformedArchive,
				"descriptor key must be a scalar", map[string]any{"key": k})
		}
		return strings.TrimSpace(node.Value), nil
	}

	d := &Descriptor{}
	var err error
	for _, f := range []struct {
		dst *string
		key string
	}{
		{&d.Coordinate.Group, key(keyGroup)},
		{&d.Coordinate.ID, key(keyID)},
		{&d.Coordinate.Version, key(keyVersion)},
		{&d.Build.BuiltBy, keyBuiltBy},
		{&d.Build.Timestamp, keyBuildTimestamp},
	} {
		if *f.dst, err = scalar(f.key); err != nil {
			return nil, err
		}
	}
	if err := d.Coordinate.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeMalformedArchive, "descriptor coordinate is incomplete", err)
	}

	var dep Coordinate
	for _, f := range []struct {
		dst *string
		key string
	}{
		{&dep.Group, key(keyDependencyGroup)},
		{&dep.ID, key(keyDependencyID)},
		{&dep.Version, key(keyDependencyVersion)},
	} {
		if *f.dst, err = scalar(f.key); err != nil {
			return nil, err
		}
	}
	if !dep.IsZero() {
		if err := dep.Validate(); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeMalformedArchive, "descriptor dependency is incomplete", err)
		}
		if dep == d.Coordinate {
			return nil, apperrors.NewWithContext(apperrors.ErrCodeCyclicDependency,
				"bundle declares itself as its dependency", map[string]any{"coordinate": dep.String()})
		}
		d.Dependency = &dep
	}

	if node, ok := raw[key(keyProviders)]; ok {
		if err := node.Decode(&d.Providers); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeMalformedArchive, "invalid providers list", err)
		}
	}
	seen := make(map[string]struct{}, len(d.Providers))
	for i, p := range d.Providers {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, apperrors.NewWithContext(apperrors.ErrCodeMalformedArchive,
				"provider entry has no name", map[string]any{"index": i})
		}
		if _, dup := seen[name]; dup {
			return nil, apperrors.NewWithContext(apperrors.ErrCodeMalformedArchive,
				"provider declared twice", map[string]any{"provider": name})
		}
		seen[name] = struct{}{}
		d.Providers[i].Name = name
	}

	if node, ok := raw[key(keyNames)]; ok {
		if err := node.Decode(&d.Names); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeMalformedArchive, "invalid names list", err)
		}
	}

	return d, nil
}

// OwnedNames returns provider names and private names, sorted and de-duplicated.
func (d *Descriptor) OwnedNames() []string {
	set := make(map[string]struct{}, len(d.Providers)+len(d.Names))
	for _, p := range d.Providers {
		set[p.Name] = struct{}{}
	}
	for _, n := range d.Names {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Provider returns the provider declaration with the given name.
func (d *Descriptor) Provider(name string) (ProviderSpec, bool) {
	for _, p := range d.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderSpec{}, false
}

// Marshal renders the descriptor as a manifest using prefix.
// It is the inverse of ParseDescriptor and is used to author archives.
func (d *Descriptor) Marshal(prefix string) ([]byte, error) {
	if prefix == "" {
		prefix = "Bundle"
	}
	m := map[string]any{
		prefix + "-" + keyGroup:   d.Coordinate.Group,
		prefix + "-" + keyID:      d.Coordinate.ID,
		prefix + "-" + keyVersion: d.Coordinate.Version,
	}
	if d.Dependency != nil {
		m[prefix+"-"+keyDependencyGroup] = d.Dependency.Group
		m[prefix+"-"+keyDependencyID] = d.Dependency.ID
		m[prefix+"-"+keyDependencyVersion] = d.Dependency.Version
	}
	if len(d.Providers) > 0 {
		m[prefix+"-"+keyProviders] = d.Providers
	}
	if len(d.Names) > 0 {
		m[prefix+"-"+keyNames] = d.Names
	}
	if d.Build.BuiltBy != "" {
		m[keyBuiltBy] = d.Build.BuiltBy
	}
	if d.Build.Timestamp != "" {
		m[keyBuildTimestamp] = d.Build.Timestamp
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode descriptor: %w", err)
	}
	return out, nil
}
