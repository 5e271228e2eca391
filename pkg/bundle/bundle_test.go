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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/NVIDIA/bundles/pkg/errors"
)

const fooManifest = `
Bundle-Group: com.example
Bundle-Id: foo-impl
Bundle-Version: 0.1.0
Bundle-Dependency-Group: com.example
Bundle-Dependency-Id: foo-lib
Bundle-Dependency-Version: 0.1.0
Bundle-Providers:
  - name: com.example.parsers.FooParser
    implements: [com.example.parsers.MessageParser]
    schema: schemas/foo.json
  - name: com.example.WithPropertiesConstructor
    implements: [com.example.AbstractFoo]
Bundle-Names:
  - com.example.parsers.internal.FooLexer
Built-By: ci
Build-Timestamp: 2025-01-15T10:30:00Z
`

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate("com.example:foo-lib-bundle:0.1.0")
	require.NoError(t, err)
	assert.Equal(t, Coordinate{Group: "com.example", ID: "foo-lib-bundle", Version: "0.1.0"}, c)
	assert.Equal(t, "com.example:foo-lib-bundle:0.1.0", c.String())

	for _, bad := range []string{"", "a:b", "a:b:c:d", "a::c", " : : "} {
		t.Run(bad, func(t *testing.T) {
			_, err := ParseCoordinate(bad)
			assert.Error(t, err)
		})
	}
}

func TestCoordinateCompare(t *testing.T) {
	a := Coordinate{Group: "g", ID: "a", Version: "0.2.0"}
	b := Coordinate{Group: "g", ID: "a", Version: "0.10.0"}
	c := Coordinate{Group: "g", ID: "b", Version: "0.1.0"}

	assert.Negative(t, a.Compare(b))
	assert.Negative(t, b.Compare(c))
	assert.Zero(t, a.Compare(a))
	assert.True(t, Coordinate{}.IsZero())
}

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor([]byte(fooManifest), "Bundle")
	require.NoError(t, err)

	assert.Equal(t, Coordinate{Group: "com.example", ID: "foo-impl", Version: "0.1.0"}, d.Coordinate)
	require.NotNil(t, d.Dependency)
	assert.Equal(t, "com.example:foo-lib:0.1.0", d.Dependency.String())
	require.Len(t, d.Providers, 2)
	assert.True(t, d.Providers[0].Satisfies("com.example.parsers.MessageParser"))
	assert.Equal(t, "schemas/foo.json", d.Providers[0].Schema)
	assert.Equal(t, "ci", d.Build.BuiltBy)
	assert.Equal(t, []string{
		"com.example.WithPropertiesConstructor",
		"com.example.parsers.FooParser",
		"com.example.parsers.internal.FooLexer",
	}, d.OwnedNames())

	p, ok := d.Provider("com.example.WithPropertiesConstructor")
	assert.True(t, ok)
	assert.Equal(t, []string{"com.example.AbstractFoo"}, p.Implements)
	_, ok = d.Provider("missing")
	assert.False(t, ok)
}

func TestParseDescriptor_CustomPrefix(t *testing.T) {
	manifest := "Plugin-Group: g\nPlugin-Id: i\nPlugin-Version: 1\n"
	d, err := ParseDescriptor([]byte(manifest), "Plugin")
	require.NoError(t, err)
	assert.Nil(t, d.Dependency)
	assert.Equal(t, "g:i:1", d.Coordinate.String())

	_, err = ParseDescriptor([]byte(manifest), "Bundle")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMalformedArchive))
}

func TestParseDescriptor_Errors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		code     apperrors.ErrorCode
	}{
		{"empty", "", apperrors.ErrCodeMalformedArchive},
		{"not yaml", "Bundle-Group: [", apperrors.ErrCodeMalformedArchive},
		{"not a map", "- a\n- b\n", apperrors.ErrCodeMalformedArchive},
		{"missing version", "Bundle-Group: g\nBundle-Id: i\n", apperrors.ErrCodeMalformedArchive},
		{"non scalar id", "Bundle-Group: g\nBundle-Id: [x]\nBundle-Version: 1\n", apperrors.ErrCodeMalformedArchive},
		{
			"partial dependency",
			"Bundle-Group: g\nBundle-Id: i\nBundle-Version: 1\nBundle-Dependency-Id: x\n",
			apperrors.ErrCodeMalformedArchive,
		},
		{
			"self dependency",
			"Bundle-Group: g\nBundle-Id: i\nBundle-Version: 1\n" +
				"Bundle-Dependency-Group: g\nBundle-Dependency-Id: i\nBundle-Dependency-Version: 1\n",
			apperrors.ErrCodeCyclicDependency,
		},
		{
			"unnamed provider",
			"Bundle-Group: g\nBundle-Id: i\nBundle-Version: 1\nBundle-Providers:\n  - implements: [x]\n",
			apperrors.ErrCodeMalformedArchive,
		},
		{
			"duplicate provider",
			"Bundle-Group: g\nBundle-Id: i\nBundle-Version: 1\nBundle-Providers:\n  - name: a\n  - name: a\n",
			apperrors.ErrCodeMalformedArchive,
		},
		{
			"providers not a list",
			"Bundle-Group: g\nBundle-Id: i\nBundle-Version: 1\nBundle-Providers: nope\n",
			apperrors.ErrCodeMalformedArchive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDescriptor([]byte(tt.manifest), "Bundle")
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestDescriptorMarshalRoundTrip(t *testing.T) {
	d, err := ParseDescriptor([]byte(fooManifest), "Bundle")
	require.NoError(t, err)

	data, err := d.Marshal("Ext")
	require.NoError(t, err)

	back, err := ParseDescriptor(data, "Ext")
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestLoadingContextResolution(t *testing.T) {
	root := NewRootContext("com.example.parsers.MessageParser")
	lib := NewContext(Coordinate{"g", "lib", "1"}, []string{"lib.Base"}, root)
	impl := NewContext(Coordinate{"g", "impl", "1"}, []string{"impl.Parser"}, lib)
	other := NewContext(Coordinate{"g", "other", "1"}, []string{"other.Private"}, root)

	owner, ok := impl.Resolve("lib.Base")
	require.True(t, ok)
	assert.Same(t, lib, owner)

	owner, ok = impl.Resolve("com.example.parsers.MessageParser")
	require.True(t, ok)
	assert.Same(t, root, owner)

	assert.False(t, impl.CanSee("other.Private"), "unrelated bundle names must stay invisible")
	assert.False(t, other.CanSee("impl.Parser"))
	assert.False(t, lib.CanSee("impl.Parser"), "parents never see children")

	assert.True(t, impl.Owns("impl.Parser"))
	assert.False(t, impl.Owns("lib.Base"))

	assert.Equal(t, 2, impl.Depth())
	assert.Same(t, root, impl.Root())
	assert.True(t, root.IsRoot())
	assert.Equal(t, []*LoadingContext{impl, lib, root}, impl.Chain())
	assert.Equal(t, "g:impl:1", impl.Name())
	assert.Equal(t, RootContextName, root.Name())
}

func TestNewContextRequiresParent(t *testing.T) {
	assert.Panics(t, func() {
		NewContext(Coordinate{"g", "i", "1"}, nil, nil)
	})
}

func TestAmbientLoadingContext(t *testing.T) {
	root := NewRootContext()
	lc := NewContext(Coordinate{"g", "i", "1"}, nil, root)

	base := WithLoadingContext(context.Background(), root)
	scoped := WithLoadingContext(base, lc)

	got, ok := LoadingContextFrom(scoped)
	require.True(t, ok)
	assert.Same(t, lc, got)

	got, ok = LoadingContextFrom(base)
	require.True(t, ok)
	assert.Same(t, root, got, "outer context keeps its loading context")

	_, ok = LoadingContextFrom(context.Background())
	assert.False(t, ok)
}

func TestBundle(t *testing.T) {
	root := NewRootContext()
	sys := NewSystemBundle(root)
	assert.Equal(t, SystemCoordinate, sys.Coordinate())
	assert.True(t, sys.Parent().IsZero())

	d, err := ParseDescriptor([]byte(fooManifest), "Bundle")
	require.NoError(t, err)
	b := New(d, root, "/work/foo", "/lib/foo.bundle")
	assert.Equal(t, "com.example:foo-impl:0.1.0", b.String())
	assert.Equal(t, SystemCoordinate, b.Parent())
	assert.True(t, b.Context.Owns("com.example.parsers.FooParser"))
}
