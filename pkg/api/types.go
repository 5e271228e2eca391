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
	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/extension"
)

// BundleView is the serialized form of a loaded bundle.
type BundleView struct {
	Coordinate string   `json:"coordinate" yaml:"coordinate"`
	Parent     string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	Archive    string   `json:"archive,omitempty" yaml:"archive,omitempty"`
	Providers  []string `json:"providers,omitempty" yaml:"providers,omitempty"`
	Names      []string `json:"names,omitempty" yaml:"names,omitempty"`
	System     bool     `json:"system,omitempty" yaml:"system,omitempty"`
}

// NewBundleView builds the view of b.
func NewBundleView(b *bundle.Bundle) BundleView {
	v := BundleView{
		Coordinate: b.Coordinate().String(),
		Archive:    b.Archive,
		Names:      b.Descriptor.Names,
		System:     b.Coordinate() == bundle.SystemCoordinate,
	}
	if p := b.Parent(); !p.IsZero() {
		v.Parent = p.String()
	}
	for _, p := range b.Descriptor.Providers {
		v.Providers = append(v.Providers, p.Name)
	}
	return v
}

// BundleList is the body of GET /v1/bundles.
type BundleList struct {
	Bundles  []BundleView `json:"bundles" yaml:"bundles"`
	Warnings []string     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ExtensionList is the body of GET /v1/extensions.
type ExtensionList struct {
	Capability string   `json:"capability" yaml:"capability"`
	Providers  []string `json:"providers" yaml:"providers"`
}

// ProviderOwners is the body of GET /v1/providers/{name}. Owners are in
// resolution order; the first one is used for instance creation.
type ProviderOwners struct {
	Name   string       `json:"name" yaml:"name"`
	Owners []BundleView `json:"owners" yaml:"owners"`
}

// CapabilityList is the body of GET /v1/capabilities.
type CapabilityList struct {
	Capabilities []string `json:"capabilities" yaml:"capabilities"`
}

func capabilityNames(caps []extension.Capability) []string {
	out := make([]string, 0, len(caps))
	for _, c := range caps {
		out = append(out, c.String())
	}
	return out
}
