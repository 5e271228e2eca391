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
	"fmt"
	"time"

	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/config"
	apperrors "github.com/NVIDIA/bundles/pkg/errors"
	"github.com/NVIDIA/bundles/pkg/logging"
)

// InstanceFactory constructs providers by name.
type InstanceFactory struct {
	Registry *Registry
	Catalog  *Catalog
}

// NewInstanceFactory returns an InstanceFactory over r and c.
func NewInstanceFactory(r *Registry, c *Catalog) *InstanceFactory {
	return &InstanceFactory{Registry: r, Catalog: c}
}

// CreateInstance constructs the provider called name. The owning bundle's
// loading context is bound into the ctx passed to the factory. A factory
// with a config constructor gets cfg (an empty source when cfg is nil);
// otherwise its no-argument constructor runs.
//
// Errors: NOT_INITIALIZED before the registry is initialized,
// CLASS_NOT_FOUND when no loaded bundle provides name or no factory is
// registered for it, INSTANTIATION when construction fails or panics.
func (f *InstanceFactory) CreateInstance(ctx context.Context, name string, cfg config.PropertySource) (any, error) {
	owners, err := f.Registry.Bundles(name)
	if err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		instanceCreations.WithLabelValues(outcomeNotFound).Inc()
		return nil, apperrors.NewWithContext(apperrors.ErrCodeClassNotFound,
			"no loaded bundle provides the requested name", map[string]any{"provider": name})
	}
	owner := owners[0]

	ctx = logging.WithAttrs(ctx, "provider", name, "coordinate", owner.String())
	log := logging.FromContext(ctx)
	if len(owners) > 1 {
		log.Debug("provider offered by several bundles, using preferred owner", "owners", len(owners))
	}

	factory, ok := f.Catalog.Lookup(owner.Coordinate(), name)
	if !ok {
		instanceCreations.WithLabelValues(outcomeNotFound).Inc()
		return nil, apperrors.NewWithContext(apperrors.ErrCodeClassNotFound,
			"no factory registered for provider",
			map[string]any{"provider": name, "coordinate": owner.String()})
	}

	start := time.Now()
	v, err := construct(bundle.WithLoadingContext(ctx, owner.Context), factory, cfg)
	instanceCreateDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		instanceCreations.WithLabelValues(outcomeFailed).Inc()
		log.Debug("provider construction failed", "error", err)
		return nil, apperrors.WrapWithContext(apperrors.ErrCodeInstantiation,
			"failed to construct provider", err,
			map[string]any{"provider": name, "coordinate": owner.String()})
	}
	instanceCreations.WithLabelValues(outcomeSuccess).Inc()
	return v, nil
}

// construct runs the preferred constructor and converts panics to errors.
func construct(ctx context.Context, f Factory, cfg config.PropertySource) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = fmt.Errorf("constructor panicked: %w", e)
				return
			}
			err = fmt.Errorf("constructor panicked: %v", rec)
		}
	}()

	switch {
	case f.NewWithConfig != nil:
		if cfg == nil {
			cfg = config.NewProperties(nil)
		}
		v, err = f.NewWithConfig(ctx, cfg)
	case f.New != nil:
		v, err = f.New(ctx)
	default:
		return nil, fmt.Errorf("no viable constructor")
	}
	if err == nil && v == nil {
		err = fmt.Errorf("constructor returned no instance")
	}
	return v, err
}

// Create is CreateInstance with a type check on the result.
func Create[T any](ctx context.Context, f *InstanceFactory, name string, cfg config.PropertySource) (T, error) {
	var zero T
	v, err := f.CreateInstance(ctx, name, cfg)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, apperrors.NewWithContext(apperrors.ErrCodeInstantiation,
			"provider does not implement the requested type",
			map[string]any{"provider": name, "type": fmt.Sprintf("%T", v), "want": fmt.Sprintf("%T", (*T)(nil))})
	}
	return t, nil
}
