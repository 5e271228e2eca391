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

package extension

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/config"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
)

type messageParser interface {
	Parse(string) string
}

type fooParserImpl struct {
	owner string
}

func (p *fooParserImpl) Parse(s string) string { return "foo:" + s }

type withProperties struct {
	cfg config.PropertySource
}

var errIntentional = errors.New("intentional failure")

func newFactoryFixture(t *testing.T) (*fixture, *InstanceFactory) {
	t.Helper()
	f := newFixture()
	r := NewRegistry()
	require.NoError(t, r.Init([]Capability{parserType, libContract}, f.system, f.all()))

	c := NewCatalog()
	c.MustRegister(fooParser, Factory{
		New: func(ctx context.Context) (any, error) {
			lc, _ := bundle.LoadingContextFrom(ctx)
			return &fooParserImpl{owner: lc.Name()}, nil
		},
	})
	c.MustRegister(barParser, Factory{
		NewWithConfig: func(_ context.Context, cfg config.PropertySource) (any, error) {
			if _, ok := cfg.Property("fail"); ok {
				return nil, errIntentional
			}
			return &withProperties{cfg: cfg}, nil
		},
		New: func(context.Context) (any, error) {
			t.Error("no-arg constructor must not run when a config constructor exists")
			return nil, nil
		},
	})
	c.MustRegister(libImpl, Factory{})
	return f, NewInstanceFactory(r, c)
}

func TestCreateInstance_BindsOwnerContext(t *testing.T) {
	_, factory := newFactoryFixture(t)
	outer := bundle.NewRootContext()
	ctx := bundle.WithLoadingContext(context.Background(), outer)

	v, err := factory.CreateInstance(ctx, fooParser, nil)
	require.NoError(t, err)
	assert.Equal(t, "com.example:foo:0.1.0", v.(*fooParserImpl).owner)

	got, ok := bundle.LoadingContextFrom(ctx)
	require.True(t, ok)
	assert.Same(t, outer, got, "caller's loading context is unchanged")
}

func TestCreateInstance_ConfigConstructor(t *testing.T) {
	_, factory := newFactoryFixture(t)
	ctx := context.Background()

	v, err := factory.CreateInstance(ctx, barParser, config.NewProperties(map[string]string{"x": "y"}))
	require.NoError(t, err)
	require.NotNil(t, v)
	x, _ := v.(*withProperties).cfg.Property("x")
	assert.Equal(t, "y", x)

	v, err = factory.CreateInstance(ctx, barParser, nil)
	require.NoError(t, err, "nil config is passed as an empty source")
	assert.NotNil(t, v)

	_, err = factory.CreateInstance(ctx, barParser, config.NewProperties(map[string]string{"fail": "true"}))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInstantiation))
	assert.ErrorIs(t, err, errIntentional)
}

func TestCreateInstance_Errors(t *testing.T) {
	_, factory := newFactoryFixture(t)
	ctx := context.Background()

	panicking := NewCatalog()
	panicking.MustRegister(fooParser, Factory{New: func(context.Context) (any, error) { panic("boom") }})
	panicking.MustRegister(barParser, Factory{New: func(context.Context) (any, error) { panic(errIntentional) }})
	panicFactory := NewInstanceFactory(factory.Registry, panicking)

	uninitialized := NewInstanceFactory(NewRegistry(), factory.Catalog)

	tests := []struct {
		name     string
		factory  *InstanceFactory
		provider string
		code     apperrors.ErrorCode
	}{
		{"unknown provider", factory, "com.example.Nope", apperrors.ErrCodeClassNotFound},
		{"not conforming", factory, hiddenImpl, apperrors.ErrCodeClassNotFound},
		{"no factory", panicFactory, libImpl, apperrors.ErrCodeClassNotFound},
		{"no viable constructor", factory, libImpl, apperrors.ErrCodeInstantiation},
		{"panic value", panicFactory, fooParser, apperrors.ErrCodeInstantiation},
		{"panic error", panicFactory, barParser, apperrors.ErrCodeInstantiation},
		{"not initialized", uninitialized, fooParser, apperrors.ErrCodeNotInitialized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.factory.CreateInstance(ctx, tt.provider, nil)
			require.Error(t, err)
			assert.Nil(t, v)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	_, err := panicFactory.CreateInstance(ctx, barParser, nil)
	assert.ErrorIs(t, err, errIntentional)
}

func TestCreateInstance_ScopedFactory(t *testing.T) {
	f, factory := newFactoryFixture(t)
	require.NoError(t, factory.Catalog.RegisterScoped(f.impl.Coordinate(), libImpl, Factory{
		New: func(context.Context) (any, error) { return "scoped impl", nil },
	}))

	v, err := factory.CreateInstance(context.Background(), libImpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "scoped impl", v)
}

func TestCreate_TypeCheck(t *testing.T) {
	_, factory := newFactoryFixture(t)
	ctx := context.Background()

	p, err := Create[messageParser](ctx, factory, fooParser, nil)
	require.NoError(t, err)
	assert.Equal(t, "foo:x", p.Parse("x"))

	_, err = Create[messageParser](ctx, factory, barParser, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInstantiation))

	_, err = Create[messageParser](ctx, factory, "com.example.Nope", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeClassNotFound))
}
