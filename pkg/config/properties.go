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
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// PropertySource is a mutable key/value view of configuration.
type PropertySource interface {
	// Property returns the value for key and whether it is set.
	Property(key string) (string, bool)
	// PropertyOr returns the value for key, or def when unset or blank.
	PropertyOr(key, def string) string
	// Keys returns all known keys in sorted order.
	Keys() []string
	// Set stores value under key.
	Set(key, value string)
	// Unset removes key.
	Unset(key string)
}

// Properties is the default PropertySource implementation.
// It is safe for concurrent use.
type Properties struct {
	mu     sync.RWMutex
	values map[string]string
	source string
}

var _ PropertySource = (*Properties)(nil)

// viperKeyDelimiter keeps dotted keys such as "bundle.library.directory" and
// "bundle.library.directory.alt" flat; with viper's default "." delimiter the
// first would shadow the second as a nested map.
const viperKeyDelimiter = "::"

// NewProperties creates Properties from an in-memory map.
func NewProperties(values map[string]string) *Properties {
	p := &Properties{values: make(map[string]string, len(values))}
	for k, v := range values {
		p.values[normalizeKey(k)] = v
	}
	return p
}

// LoadProperties reads a properties file and applies overrides on top.
// Supported formats are .properties, .yaml/.yml, .json and .toml.
func LoadProperties(path string, overrides map[string]string) (*Properties, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("properties file %q: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("properties file %q is a directory", path)
	}

	var values map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".properties", ".conf", "":
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open properties file: %w", openErr)
		}
		defer f.Close()
		values, err = parseProperties(f)
	default:
		values, err = readWithViper(path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load properties file %q: %w", path, err)
	}

	p := NewProperties(values)
	p.source = path
	for k, v := range overrides {
		p.Set(k, v)
	}
	return p, nil
}

func readWithViper(path string) (map[string]string, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter(viperKeyDelimiter))
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	values := make(map[string]string)
	for _, key := range v.AllKeys() {
		values[strings.ReplaceAll(key, viperKeyDelimiter, ".")] = v.GetString(key)
	}
	return values, nil
}

// parseProperties reads Java-style "key=value" / "key: value" lines.
// Lines starting with '#' or '!' are comments; a trailing '\' continues
// the value on the next line.
func parseProperties(r io.Reader) (map[string]string, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(r)

	var pending strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if pending.Len() == 0 && (line == "" || line[0] == '#' || line[0] == '!') {
			continue
		}
		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimSuffix(line, `\`))
			continue
		}
		pending.WriteString(line)
		logical := pending.String()
		pending.Reset()

		idx := strings.IndexAny(logical, "=:")
		if idx < 0 {
			values[normalizeKey(logical)] = ""
			continue
		}
		key := normalizeKey(logical[:idx])
		if key == "" {
			continue
		}
		values[key] = strings.TrimSpace(logical[idx+1:])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Source returns the file the properties were loaded from, if any.
func (p *Properties) Source() string {
	return p.source
}

// Property returns the value for key and whether it is set.
func (p *Properties) Property(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.values[normalizeKey(key)]
	return v, ok
}

// PropertyOr returns the value for key, or def when unset or blank.
func (p *Properties) PropertyOr(key, def string) string {
	v, ok := p.Property(key)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// Keys returns all known keys in sorted order.
func (p *Properties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Sorted(maps.Keys(p.values))
}

// Set stores value under key.
func (p *Properties) Set(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[normalizeKey(key)] = value
}

// Unset removes key.
func (p *Properties) Unset(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.values, normalizeKey(key))
}

// Clone returns an independent copy.
func (p *Properties) Clone() *Properties {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c := NewProperties(p.values)
	c.source = p.source
	return c
}

// Map returns a copy of all key/value pairs.
func (p *Properties) Map() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.values)
}
