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

// Bundle binds a Coordinate to its Descriptor and LoadingContext.
// A Bundle is owned by the registry that discovered it.
type Bundle struct {
	Descriptor *Descriptor
	Context    *LoadingContext
	// Dir is the extracted working directory of the archive; empty for the
	// system bundle.
	Dir string
	// Archive is the path of the source archive; empty for the system bundle.
	Archive string
}

// New creates a Bundle for a parsed descriptor whose context delegates to parent.
func New(d *Descriptor, parent *LoadingContext, dir, archive string) *Bundle {
	return &Bundle{
		Descriptor: d,
		Context:    NewContext(d.Coordinate, d.OwnedNames(), parent),
		Dir:        dir,
		Archive:    archive,
	}
}

// NewSystemBundle creates the system bundle around the root context.
func NewSystemBundle(root *LoadingContext) *Bundle {
	return &Bundle{
		Descriptor: &Descriptor{Coordinate: SystemCoordinate},
		Context:    root,
	}
}

// Coordinate returns the bundle's coordinate.
func (b *Bundle) Coordinate() Coordinate {
	return b.Descriptor.Coordinate
}

// String implements fmt.Stringer.
func (b *Bundle) String() string {
	return b.Coordinate().String()
}

// Parent returns the coordinate of the bundle whose context is this
// bundle's parent.
func (b *Bundle) Parent() Coordinate {
	if p := b.Context.Parent(); p != nil {
		return p.Owner()
	}
	return Coordinate{}
}
