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

package locator

import (
	"context"
	"slices"

	"github.com/NVIDIA/bundles/pkg/bundle"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
	"github.com/NVIDIA/bundles/pkg/logging"
)

// Set is a coordinate-keyed collection of bundles. The first bundle added
// for a coordinate wins. A Set is not safe for concurrent mutation.
type Set struct {
	bundles map[bundle.Coordinate]*bundle.Bundle
}

// NewSet returns a Set holding bs, first occurrence winning.
func NewSet(bs ...*bundle.Bundle) *Set {
	s := &Set{bundles: make(map[bundle.Coordinate]*bundle.Bundle, len(bs))}
	for _, b := range bs {
		s.Add(b)
	}
	return s
}

// Add inserts b unless its coordinate is present and reports whether it did.
func (s *Set) Add(b *bundle.Bundle) bool {
	if b == nil {
		return false
	}
	if _, ok := s.bundles[b.Coordinate()]; ok {
		return false
	}
	s.bundles[b.Coordinate()] = b
	return true
}

// Merge adds every bundle of other whose coordinate is absent and returns
// the number added. Existing entries are never replaced.
func (s *Set) Merge(other *Set) int {
	if other == nil {
		return 0
	}
	added := 0
	for _, b := range other.Bundles() {
		if s.Add(b) {
			added++
		}
	}
	return added
}

// Get returns the bundle for c.
func (s *Set) Get(c bundle.Coordinate) (*bundle.Bundle, bool) {
	b, ok := s.bundles[c]
	return b, ok
}

// Len returns the number of bundles.
func (s *Set) Len() int {
	return len(s.bundles)
}

// Bundles returns the bundles ordered by coordinate.
func (s *Set) Bundles() []*bundle.Bundle {
	out := make([]*bundle.Bundle, 0, len(s.bundles))
	for _, b := range s.bundles {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b *bundle.Bundle) int {
		return a.Coordinate().Compare(b.Coordinate())
	})
	return out
}

// Map returns a copy of the coordinate index.
func (s *Set) Map() map[bundle.Coordinate]*bundle.Bundle {
	out := make(map[bundle.Coordinate]*bundle.Bundle, len(s.bundles))
	for c, b := range s.bundles {
		out[c] = b
	}
	return out
}

// BuildContexts creates a bundle with its loading context for every
// descriptor in d. A dependency resolves against existing first, then
// against d itself; an unresolvable dependency is logged and the bundle is
// parented to root. Coordinates already in existing are not rebuilt.
//
// The returned errors describe every problem found. MissingDependency
// errors are warnings (the bundle is still built); CyclicDependency errors
// mean the bundle was rejected.
func BuildContexts(ctx context.Context, root *bundle.LoadingContext, d *Discovery,
	existing map[bundle.Coordinate]*bundle.Bundle) (*Set, []error) {
	b := &graphBuilder{
		ctx:      ctx,
		root:     root,
		d:        d,
		existing: existing,
		built:    NewSet(),
		rejected: make(map[bundle.Coordinate]error),
	}
	for _, c := range d.Order {
		if _, ok := existing[c]; ok {
			logging.FromContext(ctx).Debug("bundle already loaded, ignoring", "coordinate", c.String())
			continue
		}
		b.resolve(c)
	}
	return b.built, b.errs
}

type graphBuilder struct {
	ctx      context.Context
	root     *bundle.LoadingContext
	d        *Discovery
	existing map[bundle.Coordinate]*bundle.Bundle
	built    *Set
	rejected map[bundle.Coordinate]error
	errs     []error
}

func (b *graphBuilder) done(c bundle.Coordinate) bool {
	if _, ok := b.built.Get(c); ok {
		return true
	}
	_, ok := b.rejected[c]
	return ok
}

// resolve follows the dependency chain from c until it reaches a bundle
// that is built, rejected, external or already on the chain, then builds
// the chain back to front.
func (b *graphBuilder) resolve(c bundle.Coordinate) {
	var chain []bundle.Coordinate
	onChain := make(map[bundle.Coordinate]int)

	for cur := c; !b.done(cur); {
		if i, ok := onChain[cur]; ok {
			b.rejectCycle(chain[i:])
			chain = chain[:i]
			break
		}
		onChain[cur] = len(chain)
		chain = append(chain, cur)

		dep := b.d.Descriptors[cur].Dependency
		if dep == nil {
			break
		}
		if _, ok := b.existing[*dep]; ok {
			break
		}
		if _, ok := b.d.Descriptors[*dep]; !ok {
			break
		}
		cur = *dep
	}

	for i := len(chain) - 1; i >= 0; i-- {
		b.build(chain[i])
	}
}

func (b *graphBuilder) rejectCycle(members []bundle.Coordinate) {
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.String()
	}
	for _, m := range members {
		err := apperrors.NewWithContext(apperrors.ErrCodeCyclicDependency,
			"bundle is part of a dependency cycle",
			map[string]any{"coordinate": m.String(), "cycle": names})
		b.reject(m, err)
	}
}

func (b *graphBuilder) reject(c bundle.Coordinate, err error) {
	b.rejected[c] = err
	b.errs = append(b.errs, err)
	archivesSkipped.WithLabelValues(skipCycle).Inc()
	logging.FromContext(b.ctx).Warn("rejecting bundle", "coordinate", c.String(), "error", err)
}

func (b *graphBuilder) build(c bundle.Coordinate) {
	if b.done(c) {
		return
	}
	desc := b.d.Descriptors[c]
	parent := b.root

	if dep := desc.Dependency; dep != nil {
		if eb, ok := b.existing[*dep]; ok {
			parent = eb.Context
		} else if pb, ok := b.built.Get(*dep); ok {
			parent = pb.Context
		} else if _, ok := b.rejected[*dep]; ok {
			b.reject(c, apperrors.NewWithContext(apperrors.ErrCodeCyclicDependency,
				"bundle depends on a bundle rejected for a dependency cycle",
				map[string]any{"coordinate": c.String(), "dependency": dep.String()}))
			return
		} else {
			err := apperrors.NewWithContext(apperrors.ErrCodeMissingDependency,
				"dependency not found, using root context",
				map[string]any{"coordinate": c.String(), "dependency": dep.String()})
			b.errs = append(b.errs, err)
			logging.FromContext(b.ctx).Warn("missing bundle dependency",
				"coordinate", c.String(), "dependency", dep.String())
		}
	}

	b.built.Add(bundle.New(desc, parent, b.d.Dirs[c], b.d.Archives[c]))
}
