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
	"strings"

	"github.com/NVIDIA/bundles/pkg/version"
)

// SystemCoordinate identifies the root (system) bundle.
var SystemCoordinate = Coordinate{Group: "default", ID: "system", Version: "unversioned"}

// Coordinate uniquely identifies a bundle. It is comparable and used as a map key.
type Coordinate struct {
	Group   string `json:"group" yaml:"group"`
	ID      string `json:"id" yaml:"id"`
	Version string `json:"version" yaml:"version"`
}

// ParseCoordinate parses "group:id:version".
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: expected group:id:version", s)
	}
	c := Coordinate{Group: parts[0], ID: parts[1], Version: parts[2]}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// String returns "group:id:version".
func (c Coordinate) String() string {
	return c.Group + ":" + c.ID + ":" + c.Version
}

// IsZero reports whether c is the zero Coordinate.
func (c Coordinate) IsZero() bool {
	return c == Coordinate{}
}

// Validate checks that every part is present and free of separators.
func (c Coordinate) Validate() error {
	for _, f := range []struct{ name, part string }{
		{"group", c.Group}, {"id", c.ID}, {"version", c.Version},
	} {
		name, part := f.name, f.part
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("invalid coordinate %q: %s is empty", c.String(), name)
		}
		if strings.Contains(part, ":") {
			return fmt.Errorf("invalid coordinate %q: %s contains ':'", c.String(), name)
		}
	}
	return nil
}

// Compare orders coordinates by group, then id, then version (newest last).
func (c Coordinate) Compare(other Coordinate) int {
	if n := strings.Compare(c.Group, other.Group); n != 0 {
		return n
	}
	if n := strings.Compare(c.ID, other.ID); n != 0 {
		return n
	}
	return version.CompareStrings(c.Version, other.Version)
}
