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

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/bundles/pkg/archive"
	"github.com/NVIDIA/bundles/pkg/config"
	"github.com/NVIDIA/bundles/pkg/header"
	"github.com/NVIDIA/bundles/pkg/mapper"
	"github.com/NVIDIA/bundles/pkg/serializer"
)

// mappingView is the serialized form of a mapper.Mapping.
type mappingView struct {
	Capabilities map[string][]string `json:"capabilities" yaml:"capabilities"`
	Schemas      map[string]string   `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	Providers    int                 `json:"providers" yaml:"providers"`
}

func newMappingView(m *mapper.Mapping) mappingView {
	v := mappingView{
		Capabilities: make(map[string][]string),
		Providers:    m.Size(),
	}
	for _, c := range m.Capabilities() {
		providers := m.Providers(c)
		v.Capabilities[c] = providers
		for _, p := range providers {
			if ref, ok := m.SchemaRef(p); ok {
				if v.Schemas == nil {
					v.Schemas = make(map[string]string)
				}
				v.Schemas[p] = ref
			}
		}
	}
	return v
}

func mapCmd() *cli.Command {
	return &cli.Command{
		Name:  "map",
		Usage: "Map capabilities to the providers found in the library directories",
		Flags: []cli.Flag{
			configFlag(),
			propertyFlag(),
			&cli.StringSliceFlag{
				Name:  "capability",
				Usage: "capability to map (repeatable, default: configured extension types)",
			},
			&cli.StringFlag{
				Name:  "capabilities-file",
				Usage: "JSON or YAML file holding a list of capabilities to map",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			props, err := loadProperties(cmd)
			if err != nil {
				return err
			}

			capabilities := cmd.StringSlice("capability")
			if path := cmd.String("capabilities-file"); path != "" {
				fromFile, readErr := serializer.FromFile[[]string](path)
				if readErr != nil {
					return fmt.Errorf("failed to read capabilities: %w", readErr)
				}
				capabilities = append(capabilities, *fromFile...)
			}
			slices.Sort(capabilities)
			capabilities = slices.Compact(capabilities)

			store, err := archive.NewFileStore(config.WorkingDirectory(props))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			m, err := mapper.Map(ctx, store, props, capabilities...)
			if err != nil {
				return err
			}
			slog.Debug("mapped extensions", "providers", m.Size(), "capabilities", len(m.Capabilities()))
			return write(ctx, cmd, newReport(header.KindExtensionMapping, newMappingView(m)))
		},
	}
}
