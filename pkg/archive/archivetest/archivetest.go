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

// Package archivetest builds bundle archives for tests.
package archivetest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/NVIDIA/bundles/pkg/bundle"
)

// Write creates a zip archive at path holding manifest at the descriptor
// location plus files (name to content). A nil manifest omits the descriptor.
// It returns path.
func Write(t testing.TB, path string, manifest []byte, files map[string]string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create archive directory: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	add := func(name string, data []byte) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if manifest != nil {
		add(bundle.ManifestPath, manifest)
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		add(name, []byte(files[name]))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish archive: %v", err)
	}
	return path
}

// WriteBundle renders d with the default prefix and writes it as
// <dir>/<name>.
func WriteBundle(t testing.TB, dir, name string, d *bundle.Descriptor, files map[string]string) string {
	t.Helper()
	return WriteBundleWithPrefix(t, dir, name, "Bundle", d, files)
}

// WriteBundleWithPrefix is WriteBundle with a custom descriptor key prefix.
func WriteBundleWithPrefix(t testing.TB, dir, name, prefix string, d *bundle.Descriptor, files map[string]string) string {
	t.Helper()
	manifest, err := d.Marshal(prefix)
	if err != nil {
		t.Fatalf("failed to render descriptor: %v", err)
	}
	return Write(t, filepath.Join(dir, name), manifest, files)
}

// Descriptor is a shorthand for a descriptor without dependency or names.
func Descriptor(group, id, version string, providers ...bundle.ProviderSpec) *bundle.Descriptor {
	return &bundle.Descriptor{
		Coordinate: bundle.Coordinate{Group: group, ID: id, Version: version},
		Providers:  providers,
	}
}

// DependsOn sets d's dependency and returns d.
func DependsOn(d *bundle.Descriptor, group, id, version string) *bundle.Descriptor {
	d.Dependency = &bundle.Coordinate{Group: group, ID: id, Version: version}
	return d
}
