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
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NVIDIA/bundles/pkg/archive"
	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/config"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
	"github.com/NVIDIA/bundles/pkg/logging"
)

// Locator finds archives under discovery roots and parses their descriptors.
type Locator struct {
	Store        archive.Store
	Extension    string
	MetaIDPrefix string
	// Parallelism bounds concurrent extractions per root; zero means GOMAXPROCS.
	Parallelism int
}

// New returns a Locator reading the archive extension and descriptor prefix
// from ps.
func New(store archive.Store, ps config.PropertySource) *Locator {
	return &Locator{
		Store:        store,
		Extension:    config.ArchiveExtension(ps),
		MetaIDPrefix: config.MetaIDPrefix(ps),
	}
}

// Discovery is the result of one discovery pass.
type Discovery struct {
	Descriptors map[bundle.Coordinate]*bundle.Descriptor
	Dirs        map[bundle.Coordinate]string
	Archives    map[bundle.Coordinate]string
	// Order lists coordinates in the order they were first seen.
	Order []bundle.Coordinate
	// Skipped holds the per-archive errors that were logged and ignored.
	Skipped []error
}

// NewDiscovery returns an empty Discovery.
func NewDiscovery() *Discovery {
	return &Discovery{
		Descriptors: make(map[bundle.Coordinate]*bundle.Descriptor),
		Dirs:        make(map[bundle.Coordinate]string),
		Archives:    make(map[bundle.Coordinate]string),
	}
}

// Len returns the number of discovered descriptors.
func (d *Discovery) Len() int {
	return len(d.Order)
}

// add records a descriptor unless its coordinate was already seen.
func (d *Discovery) add(desc *bundle.Descriptor, dir, archivePath string) bool {
	c := desc.Coordinate
	if _, ok := d.Descriptors[c]; ok {
		return false
	}
	d.Descriptors[c] = desc
	d.Dirs[c] = dir
	d.Archives[c] = archivePath
	d.Order = append(d.Order, c)
	return true
}

type located struct {
	path string
	dir  string
	desc *bundle.Descriptor
	err  error
}

// Locate scans roots in order. Missing roots are skipped with a warning; a
// root that is a regular file fails with ErrCodeInvalidDiscoveryRoot and a
// nil Discovery.
func (l *Locator) Locate(ctx context.Context, roots []string) (*Discovery, error) {
	start := time.Now()
	defer func() { locateDuration.Observe(time.Since(start).Seconds()) }()

	resolved, err := l.checkRoots(ctx, roots)
	if err != nil {
		return nil, err
	}

	d := NewDiscovery()
	for _, root := range resolved {
		rctx := logging.WithAttrs(ctx, "root", root)
		found, err := l.scan(rctx, root)
		if err != nil {
			return nil, err
		}
		l.fold(rctx, d, found)
	}

	logging.FromContext(ctx).Debug("discovery complete",
		"roots", len(resolved),
		"bundles", d.Len(),
		"skipped", len(d.Skipped),
	)
	return d, nil
}

// checkRoots resolves every root and drops missing ones. All roots are
// checked before any archive is touched.
func (l *Locator) checkRoots(ctx context.Context, roots []string) ([]string, error) {
	log := logging.FromContext(ctx)
	resolved := make([]string, 0, len(roots))
	for _, r := range roots {
		root, err := archive.ResolveRoot(r)
		if err != nil {
			return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidDiscoveryRoot, "invalid discovery root", err,
				map[string]any{"root": r})
		}
		state, err := l.Store.Stat(root)
		if err != nil {
			return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidDiscoveryRoot, "cannot inspect discovery root", err,
				map[string]any{"root": root})
		}
		switch state {
		case archive.RootFile:
			return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidDiscoveryRoot,
				"discovery root is a file, not a directory", map[string]any{"root": root})
		case archive.RootMissing:
			log.Warn("discovery root does not exist, skipping", "root", root)
			archivesSkipped.WithLabelValues(skipMissingRoot).Inc()
			continue
		case archive.RootDirectory:
			resolved = append(resolved, root)
		}
	}
	return resolved, nil
}

// scan extracts and parses every archive under root in parallel. Results
// keep the listing order.
func (l *Locator) scan(ctx context.Context, root string) ([]located, error) {
	names, err := l.Store.List(root, l.Extension)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInvalidDiscoveryRoot, "cannot list discovery root", err,
			map[string]any{"root": root})
	}

	found := make([]located, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallelism())
	for i, name := range names {
		path := filepath.Join(root, name)
		g.Go(func() error {
			found[i] = l.load(gctx, path)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("discovery of %s interrupted: %w", root, err)
	}
	return found, nil
}

func (l *Locator) parallelism() int {
	if l.Parallelism > 0 {
		return l.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

func (l *Locator) load(ctx context.Context, path string) located {
	dir, err := l.Store.Extract(ctx, path)
	if err != nil {
		return located{path: path, err: err}
	}
	data, err := l.Store.ReadDescriptor(dir)
	if err != nil {
		return located{path: path, err: err}
	}
	desc, err := bundle.ParseDescriptor(data, l.MetaIDPrefix)
	if err != nil {
		return located{path: path, err: apperrors.WrapWithContext(apperrors.CodeOf(err), "invalid bundle descriptor", err,
			map[string]any{"archive": path})}
	}
	return located{path: path, dir: dir, desc: desc}
}

func (l *Locator) fold(ctx context.Context, d *Discovery, found []located) {
	log := logging.FromContext(ctx)
	for _, f := range found {
		if f.err != nil {
			log.Warn("skipping archive", "archive", f.path, "error", f.err)
			reason := skipMalformed
			if apperrors.HasCode(f.err, apperrors.ErrCodeCyclicDependency) {
				reason = skipCycle
			}
			archivesSkipped.WithLabelValues(reason).Inc()
			d.Skipped = append(d.Skipped, f.err)
			continue
		}
		if !d.add(f.desc, f.dir, f.path) {
			log.Debug("coordinate already discovered, ignoring archive",
				"archive", f.path, "coordinate", f.desc.Coordinate.String())
			archivesSkipped.WithLabelValues(skipDuplicate).Inc()
			continue
		}
		archivesDiscovered.Inc()
	}
}

// LocateArchive loads the single archive fileName from root. A missing
// archive fails with ErrCodeClassNotFound, an unreadable descriptor with
// ErrCodeMalformedArchive.
func (l *Locator) LocateArchive(ctx context.Context, root, fileName string) (*Discovery, error) {
	if fileName == "" || !filepath.IsLocal(fileName) {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"archive name must be a file name relative to the root", map[string]any{"archive": fileName})
	}
	resolved, err := l.checkRoots(ctx, []string{root})
	if err != nil {
		return nil, err
	}
	if len(resolved) == 0 {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeClassNotFound,
			"discovery root does not exist", map[string]any{"root": root, "archive": fileName})
	}

	path := filepath.Join(resolved[0], fileName)
	f := l.load(logging.WithAttrs(ctx, "root", resolved[0]), path)
	if f.err != nil {
		if apperrors.HasCode(f.err, apperrors.ErrCodeClassNotFound) {
			return nil, f.err
		}
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeMalformedArchive, "cannot load archive", f.err,
			map[string]any{"archive": path})
	}

	d := NewDiscovery()
	d.add(f.desc, f.dir, f.path)
	archivesDiscovered.Inc()
	return d, nil
}
