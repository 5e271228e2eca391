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

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/bundles/pkg/api"
	"github.com/NVIDIA/bundles/pkg/server"
	"github.com/NVIDIA/bundles/pkg/system"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Initialize the bundle system and serve the read-only introspection API",
		Flags: []cli.Flag{
			configFlag(),
			propertyFlag(),
			&cli.StringFlag{
				Name:  "address",
				Usage: "listen address",
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "listen port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "add archives dropped into the primary library directory while running",
			},
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

			return api.Serve(ctx, sys,
				api.WithVersion(version),
				api.WithWatch(cmd.Bool("watch")),
				api.WithServerOptions(server.WithAddress(cmd.String("address"), int(cmd.Int("port")))),
			)
		},
	}
}
