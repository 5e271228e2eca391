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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/bundles/pkg/api"
	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/header"
	"github.com/NVIDIA/bundles/pkg/system"
)

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Initialize the bundle system and list the loaded bundles",
		Flags: []cli.Flag{
			configFlag(),
			propertyFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			props, err := loadProperties(cmd)
			if err != nil {
				return err
			}

			sys, err := system.New(system.WithProperties(props))
			if err != nil {
				return err
			}
			defer func() { _ = sys.Close() }()

			if err := sys.Init(ctx); err != nil {
				return err
			}

			bundles, err := sys.Bundles()
			if err != nil {
				return err
			}

			view := api.BundleList{Bundles: make([]api.BundleView, 0, len(bundles))}
			for _, b := range bundles {
				if b.Coordinate() == bundle.SystemCoordinate {
					continue
				}
				view.Bundles = append(view.Bundles, api.NewBundleView(b))
			}
			for _, w := range sys.Warnings() {
				view.Warnings = append(view.Warnings, w.Error())
			}
			slog.Debug("listed bundles", "count", len(view.Bundles), "warnings", len(view.Warnings))
			return write(ctx, cmd, newReport(header.KindBundleList, view))
		},
	}
}
