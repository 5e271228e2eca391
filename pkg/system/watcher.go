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

package system

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/NVIDIA/bundles/pkg/archive"
	"github.com/NVIDIA/bundles/pkg/config"
	"github.com/NVIDIA/bundles/pkg/defaults"
	"github.com/NVIDIA/bundles/pkg/logging"
)

// watcher adds archives dropped into the primary root to a running System.
type watcher struct {
	sys       *System
	fsWatcher *fsnotify.Watcher
	root      string
	extension string
	debounce  time.Duration
	added     chan string
	pending   map[string]struct{}
}

// Watch watches the primary discovery root and adds every new or rewritten
// archive with AddBundle once the root has been quiet for the debounce
// period. The returned channel receives the names of archives that added
// at least one bundle; it is closed when ctx is done.
func (s *System) Watch(ctx context.Context) (<-chan string, error) {
	if !s.registry.Initialized() {
		return nil, notInitialized()
	}
	root, err := archive.ResolveRoot(config.PrimaryLibraryDirectory(s.props))
	if err != nil {
		return nil, fmt.Errorf("resolving primary root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching directory %s: %w", root, err)
	}

	w := &watcher{
		sys:       s,
		fsWatcher: fsw,
		root:      root,
		extension: config.ArchiveExtension(s.props),
		debounce:  s.opts.WatchDebounce(),
		added:     make(chan string, 16),
		pending:   make(map[string]struct{}),
	}
	go w.loop(logging.WithAttrs(ctx, "root", root))
	return w.added, nil
}

// loop processes file system events with debouncing.
func (w *watcher) loop(ctx context.Context) {
	log := logging.FromContext(ctx)
	defer close(w.added)
	defer w.fsWatcher.Close()

	// Stopped timers never deliver stale values (Go 1.23 timer semantics).
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			w.pending[filepath.Base(event.Name)] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.flush(ctx)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("root watcher error", "error", err)

		case <-ctx.Done():
			return
		}
	}
}

func (w *watcher) flush(ctx context.Context) {
	log := logging.FromContext(ctx)
	names := make([]string, 0, len(w.pending))
	for n := range w.pending {
		names = append(names, n)
	}
	clear(w.pending)
	slices.Sort(names)

	for _, name := range names {
		addCtx, cancel := context.WithTimeout(ctx, defaults.AddBundleTimeout)
		added, err := w.sys.addBundle(addCtx, name)
		cancel()
		if err != nil {
			log.Warn("failed to add watched archive", "archive", name, "error", err)
			continue
		}
		if added == 0 {
			continue
		}
		select {
		case w.added <- name:
		case <-ctx.Done():
			return
		}
	}
}

// isRelevantEvent reports whether the event may have produced a complete
// archive in the root.
func (w *watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	if filepath.Dir(event.Name) != w.root {
		return false
	}
	return strings.TrimPrefix(filepath.Ext(event.Name), ".") == w.extension
}
