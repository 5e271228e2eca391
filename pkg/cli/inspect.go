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
	"os"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/bundles/pkg/archive"
	"github.com/NVIDIA/bundles/pkg/bundle"
	"github.com/NVIDIA/bundles/pkg/config"
	"github.com/NVIDIA/bundles/pkg/header"
)

type inspectView struct {
	Archive    string             `json:"archive" yaml:"archive"`
	Checksum   string             `json:"checksum" yaml:"checksum"`
	Descriptor *bundle.Descriptor `json:"descriptor" yaml:"descriptor"`
}

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the descriptor and checksum of a bundle archive",
		ArgsUsage: "ARCHIVE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "prefix",
				Value: config.DefaultMetaIDPrefix,
				Usage: "descriptor key prefix",
			},
			&cli.StringFlag{
				Name:  "work-dir",
				Value: os.TempDir(),
				Usage: "directory to extract the archive into",
			},
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("archive path is required")
			}

			store, err := archive.NewFileStore(cmd.String("work-dir"))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			dir, err := store.Extract(ctx, path)
			if err != nil {
				return err
			}
			data, err := store.ReadDescriptor(dir)
			if err != nil {
				return err
			}
			d, err := bundle.ParseDescriptor(data, cmd.String("prefix"))
			if err != nil {
				return err
			}
			sum, err := archive.FileChecksum(path)
			if err != nil {
				return err
			}
			return write(ctx, cmd, newReport(header.KindArchiveInspection, inspectView{Archive: path, Checksum: sum, Descriptor: d}))
		},
	}
}
