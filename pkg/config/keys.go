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

package config

import (
	"os"
	"strings"
)

// Property keys.
const (
	KeyLibraryDirectory       = "bundle.library.directory"
	KeyLibraryDirectoryPrefix = "bundle.library.directory."
	KeyArchiveExtension       = "bundle.archive.extension"
	KeyMetaIDPrefix           = "bundle.meta.id.prefix"
	KeyExtensionTypePrefix    = "bundle.extension.type."
	KeyWorkingDirectory       = "bundle.working.directory"
)

// Defaults.
const (
	DefaultArchiveExtension = "bundle"
	DefaultLibraryDirectory = "./lib/"
	DefaultMetaIDPrefix     = "Bundle"
)

// LibraryDirectories returns every configured discovery root: the primary
// root first, then alternates in key order. Blank values are ignored. When
// nothing is configured the default ./lib/ root is returned.
func LibraryDirectories(ps PropertySource) []string {
	var roots []string
	if v := strings.TrimSpace(ps.PropertyOr(KeyLibraryDirectory, "")); v != "" {
		roots = append(roots, v)
	}
	for _, key := range ps.Keys() {
		if !strings.HasPrefix(key, KeyLibraryDirectoryPrefix) {
			continue
		}
		if v := strings.TrimSpace(ps.PropertyOr(key, "")); v != "" {
			roots = append(roots, v)
		}
	}
	if len(roots) == 0 {
		roots = append(roots, DefaultLibraryDirectory)
	}
	return roots
}

// PrimaryLibraryDirectory returns the primary discovery root.
func PrimaryLibraryDirectory(ps PropertySource) string {
	return ps.PropertyOr(KeyLibraryDirectory, DefaultLibraryDirectory)
}

// ArchiveExtension returns the archive extension without a leading dot.
func ArchiveExtension(ps PropertySource) string {
	return strings.TrimPrefix(ps.PropertyOr(KeyArchiveExtension, DefaultArchiveExtension), ".")
}

// MetaIDPrefix returns the descriptor key prefix.
func MetaIDPrefix(ps PropertySource) string {
	return ps.PropertyOr(KeyMetaIDPrefix, DefaultMetaIDPrefix)
}

// WorkingDirectory returns the extraction area root.
func WorkingDirectory(ps PropertySource) string {
	return ps.PropertyOr(KeyWorkingDirectory, os.TempDir())
}

// ExtensionTypes returns the capability contracts declared in configuration,
// keyed by the property name after KeyExtensionTypePrefix.
func ExtensionTypes(ps PropertySource) map[string]string {
	types := make(map[string]string)
	for _, key := range ps.Keys() {
		if !strings.HasPrefix(key, KeyExtensionTypePrefix) {
			continue
		}
		contract := strings.TrimSpace(ps.PropertyOr(key, ""))
		if contract == "" {
			continue
		}
		name := strings.TrimPrefix(key, KeyExtensionTypePrefix)
		if name == "" {
			continue
		}
		types[name] = contract
	}
	return types
}
