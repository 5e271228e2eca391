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
	"context"
	"maps"
	"slices"
)

// RootContextName is the name of the root loading context.
const RootContextName = "root"

// LoadingContext is an isolated name-resolution namespace with delegation to
// a parent. Contexts never own their parent; the parent graph is acyclic by
// construction because a parent must exist before its children.
type LoadingContext struct {
	name   string
	owner  Coordinate
	names  map[string]struct{}
	parent *LoadingContext
}

// NewRootContext creates the root context owning the host-supplied names,
// typically the capability contracts every bundle may see.
func NewRootContext(names ...string) *LoadingContext {
	return &LoadingContext{
		name:  RootContextName,
		owner: SystemCoordinate,
		names: toSet(names),
	}
}

// NewContext creates a bundle context owning names and delegating to parent.
// A nil parent is not allowed; pass the root context instead.
func NewContext(owner Coordinate, names []string, parent *LoadingContext) *LoadingContext {
	if parent == nil {
		panic("bundle: NewContext requires a parent context")
	}
	return &LoadingContext{
		name:   owner.String(),
		owner:  owner,
		names:  toSet(names),
		parent: parent,
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

// Name returns the context name: the owner coordinate, or "root".
func (lc *LoadingContext) Name() string {
	return lc.name
}

// String implements fmt.Stringer.
func (lc *LoadingContext) String() string {
	return lc.name
}

// Owner returns the coordinate of the bundle owning this context.
func (lc *LoadingContext) Owner() Coordinate {
	return lc.owner
}

// Parent returns the parent context, or nil for the root.
func (lc *LoadingContext) Parent() *LoadingContext {
	return lc.parent
}

// IsRoot reports whether lc is a root context.
func (lc *LoadingContext) IsRoot() bool {
	return lc.parent == nil
}

// Depth returns the number of parent hops to the root.
func (lc *LoadingContext) Depth() int {
	d := 0
	for c := lc.parent; c != nil; c = c.parent {
		d++
	}
	return d
}

// Root returns the root of lc's delegation chain.
func (lc *LoadingContext) Root() *LoadingContext {
	c := lc
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// Owns reports whether name is owned directly by lc, ignoring parents.
func (lc *LoadingContext) Owns(name string) bool {
	_, ok := lc.names[name]
	return ok
}

// Names returns the directly owned names in sorted order.
func (lc *LoadingContext) Names() []string {
	return slices.Sorted(maps.Keys(lc.names))
}

// Resolve finds name in lc or its parent chain and returns the owning context.
func (lc *LoadingContext) Resolve(name string) (*LoadingContext, bool) {
	for c := lc; c != nil; c = c.parent {
		if c.Owns(name) {
			return c, true
		}
	}
	return nil, false
}

// CanSee reports whether name resolves from lc.
func (lc *LoadingContext) CanSee(name string) bool {
	_, ok := lc.Resolve(name)
	return ok
}

// Chain returns lc followed by its ancestors up to the root.
func (lc *LoadingContext) Chain() []*LoadingContext {
	var chain []*LoadingContext
	for c := lc; c != nil; c = c.parent {
		chain = append(chain, c)
	}
	return chain
}

type loadingContextKey struct{}

// WithLoadingContext returns a copy of ctx carrying lc as the active loading
// context. The caller's ctx is untouched, so the previous context is restored
// simply by continuing to use it, on every exit path.
func WithLoadingContext(ctx context.Context, lc *LoadingContext) context.Context {
	return context.WithValue(ctx, loadingContextKey{}, lc)
}

// LoadingContextFrom returns the active loading context carried by ctx.
func LoadingContextFrom(ctx context.Context) (*LoadingContext, bool) {
	lc, ok := ctx.Value(loadingContextKey{}).(*LoadingContext)
	return lc, ok && lc != nil
}
