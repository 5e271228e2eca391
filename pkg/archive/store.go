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
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// RootState describes what a discovery root points at.
type RootState int

const (
	// RootMissing means nothing exists at the root path.
	RootMissing RootState = iota
	// RootDirectory means the root is a directory and can be scanned.
	RootDirectory
	// RootFile means the root is a regular file, which is a configuration error.
	RootFile
)

// String implements fmt.Stringer.
func (s RootState) String() string {
	switch s {
	case RootMissing:
		return "missing"
	case RootDirectory:
		return "directory"
	case RootFile:
		return "file"
	default:
		return fmt.Sprintf("RootState(%d)", int(s))
	}
}

// Store lists, extracts and reads bundle archives.
type Store interface {
	// Stat reports what root points at.
	Stat(root string) (RootState, error)
	// List returns the file names (not paths) under root whose extension
	// matches, in lexical order.
	List(root, extension string) ([]string, error)
	// Extract unpacks the archive and returns the extracted directory.
	Extract(ctx context.Context, archive string) (string, error)
	// ReadDescriptor returns the raw manifest of an extracted archive.
	ReadDescriptor(dir string) ([]byte, error)
	// ReadFile returns a file from an extracted archive. name is relative
	// to dir and must stay inside it.
	ReadFile(dir, name string) ([]byte, error)
}

// ResolveRoot turns a configured root, either a plain path or a file:// URI,
// into a clean local path.
func ResolveRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("empty root")
	}
	if !strings.HasPrefix(root, "file:") {
		return filepath.Clean(root), nil
	}
	u, err := url.Parse(root)
	if err != nil {
		return "", fmt.Errorf("invalid root URI %q: %w", root, err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("root URI %q is not local", root)
	}
	p := u.Path
	if p == "" {
		// file:relative/dir
		p = u.Opaque
	}
	if p == "" {
		return "", fmt.Errorf("root URI %q has no path", root)
	}
	return filepath.Clean(filepath.FromSlash(p)), nil
}

func statRoot(root string) (RootState, error) {
	info, err := os.Stat(root)
	switch {
	case os.IsNotExist(err):
		return RootMissing, nil
	case err != nil:
		return RootMissing, fmt.Errorf("failed to stat %s: %w", root, err)
	case info.IsDir():
		return RootDirectory, nil
	default:
		return RootFile, nil
	}
}
