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

package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/NVIDIA/bundles/pkg/bundle"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
	"github.com/NVIDIA/bundles/pkg/logging"
)

const (
	// maxEntrySize bounds a single extracted file.
	maxEntrySize = 256 << 20

	sessionDirPrefix = "bundles-"
)

// FileStore is a Store over the local filesystem. Each FileStore owns a
// session directory under its working directory; Close removes it.
type FileStore struct {
	sessionDir string

	mu     sync.Mutex
	cache  *gocache.Cache
	globs  map[string]glob.Glob
	closed bool
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store extracting into a fresh session directory
// below workDir. An empty workDir uses the system temp directory.
func NewFileStore(workDir string) (*FileStore, error) {
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o750); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create working directory", err)
	}
	session := filepath.Join(workDir, sessionDirPrefix+uuid.NewString())
	if err := os.Mkdir(session, 0o750); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create session directory", err)
	}
	return &FileStore{
		sessionDir: session,
		cache:      gocache.New(gocache.NoExpiration, 0),
		globs:      make(map[string]glob.Glob),
	}, nil
}

// SessionDir returns the directory archives are extracted into.
func (s *FileStore) SessionDir() string {
	return s.sessionDir
}

// Stat implements Store.
func (s *FileStore) Stat(root string) (RootState, error) {
	return statRoot(root)
}

// List implements Store.
func (s *FileStore) List(root, extension string) ([]string, error) {
	g, err := s.matcher(extension)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if g.Match(e.Name()) {
			names = append(names, e.Name())
		}
	}
	// os.ReadDir returns entries sorted by file name.
	return names, nil
}

func (s *FileStore) matcher(extension string) (glob.Glob, error) {
	extension = strings.TrimPrefix(extension, ".")
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.globs[extension]; ok {
		return g, nil
	}
	g, err := glob.Compile("*." + extension)
	if err != nil {
		return nil, fmt.Errorf("failed to compile archive pattern for extension %q: %w", extension, err)
	}
	s.globs[extension] = g
	return g, nil
}

// Extract implements Store. Archives with identical content share one
// extracted directory for the lifetime of the store.
func (s *FileStore) Extract(ctx context.Context, archive string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}
	log := logging.FromContext(ctx)

	sum, err := FileChecksum(archive)
	if err != nil {
		return "", apperrors.WrapWithContext(apperrors.ErrCodeClassNotFound, "archive unreadable", err,
			map[string]any{"archive": archive})
	}
	if dir, ok := s.cached(sum); ok {
		log.Debug("archive already extracted", "archive", archive, "dir", dir)
		return dir, nil
	}

	if s.isClosed() {
		return "", apperrors.New(apperrors.ErrCodeInvalidRequest, "archive store is closed")
	}
	tmp, err := os.MkdirTemp(s.sessionDir, ".extract-")
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create extraction directory", err)
	}
	if err := unzip(ctx, archive, tmp); err != nil {
		_ = os.RemoveAll(tmp)
		return "", apperrors.WrapWithContext(apperrors.ErrCodeMalformedArchive, "failed to extract archive", err,
			map[string]any{"archive": archive})
	}

	base := strings.TrimSuffix(filepath.Base(archive), filepath.Ext(archive))
	dir := filepath.Join(s.sessionDir, base+"-"+ShortDigest(sum))

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.cache.Get(sum); ok {
		// Lost a race with a concurrent extraction of the same content.
		_ = os.RemoveAll(tmp)
		return v.(string), nil
	}
	if _, err := os.Stat(dir); err == nil {
		// Same digest prefix and base name, different archive path.
		dir = filepath.Join(s.sessionDir, base+"-"+sum)
	}
	if err := os.Rename(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return "", apperrors.Wrap(apperrors.ErrCodeInternal, "failed to finalize extraction", err)
	}
	s.cache.Set(sum, dir, gocache.NoExpiration)

	log.Debug("archive extracted", "archive", archive, "dir", dir, "sha256", sum)
	return dir, nil
}

func (s *FileStore) cached(sum string) (string, bool) {
	v, ok := s.cache.Get(sum)
	if !ok {
		return "", false
	}
	dir := v.(string)
	if _, err := os.Stat(dir); err != nil {
		s.cache.Delete(sum)
		return "", false
	}
	return dir, true
}

func (s *FileStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ReadDescriptor implements Store.
func (s *FileStore) ReadDescriptor(dir string) ([]byte, error) {
	data, err := s.ReadFile(dir, bundle.ManifestPath)
	if err != nil {
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeMalformedArchive, "archive has no descriptor", err,
			map[string]any{"dir": dir})
	}
	return data, nil
}

// ReadFile implements Store.
func (s *FileStore) ReadFile(dir, name string) ([]byte, error) {
	name = filepath.FromSlash(name)
	if !filepath.IsLocal(name) {
		return nil, apperrors.NewWithContext(apperrors.ErrCodeInvalidRequest,
			"path escapes archive", map[string]any{"name": name})
	}
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Close removes the session directory and everything extracted into it.
// It is safe to call more than once.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cache.Flush()
	if err := os.RemoveAll(s.sessionDir); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	return nil
}

func unzip(ctx context.Context, archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return fmt.Errorf("illegal entry path %q", f.Name)
		}
		target := filepath.Join(dest, name)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return err
			}
			continue
		}
		if !f.Mode().IsRegular() {
			return fmt.Errorf("unsupported entry type for %q", f.Name)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return err
		}
		if err := writeEntry(f, target); err != nil {
			return fmt.Errorf("failed to extract %q: %w", f.Name, err)
		}
	}
	return nil
}

func writeEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, io.LimitReader(rc, maxEntrySize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n > maxEntrySize {
		return fmt.Errorf("entry exceeds %d bytes", maxEntrySize)
	}
	return nil
}
