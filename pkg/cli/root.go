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
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/bundles/pkg/config"
	"github.com/NVIDIA/bundles/pkg/header"
	"github.com/NVIDIA/bundles/pkg/logging"
	"github.com/NVIDIA/bundles/pkg/serializer"
)

const (
	name           = "bundlectl"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Flag names shared by several commands.
const (
	flagOutput   = "output"
	flagFormat   = "format"
	flagConfig   = "config"
	flagProperty = "property"
)

// Flags carry parse state, so each command gets fresh instances.

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "output file path (default: stdout)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagFormat,
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("output format (supported values: %s)", strings.Join(serializer.SupportedFormats(), ", ")),
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagConfig,
		Aliases:  []string{"c"},
		Usage:    "bundle properties file (.properties, .yaml, .json or .toml)",
		Sources:  cli.EnvVars("BUNDLECTL_CONFIG"),
		Required: true,
	}
}

func propertyFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    flagProperty,
		Aliases: []string{"p"},
		Usage:   "property override as key=value (repeatable)",
	}
}

// newRootCommand builds the bundlectl command tree.
func newRootCommand() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Discover bundle archives and the extensions they provide",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("BUNDLECTL_LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			mapCmd(),
			listCmd(),
			inspectCmd(),
			serveCmd(),
		},
	}
}

// Execute runs bundlectl with the process arguments and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// parseOutputFormat returns the value of the format flag, rejecting unknown formats.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(strings.ToLower(strings.TrimSpace(cmd.String(flagFormat))))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q (supported: %s)",
			cmd.String(flagFormat), strings.Join(serializer.SupportedFormats(), ", "))
	}
	return f, nil
}

// parseOverrides turns key=value pairs into a property map.
func parseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid property override %q, expected key=value", p)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// loadProperties reads the config flag file with any property overrides applied.
func loadProperties(cmd *cli.Command) (*config.Properties, error) {
	overrides, err := parseOverrides(cmd.StringSlice(flagProperty))
	if err != nil {
		return nil, err
	}
	return config.LoadProperties(cmd.String(flagConfig), overrides)
}

// report wraps command output in the standard header.
type report[T any] struct {
	header.Header `json:",inline" yaml:",inline"`
	Spec          T `json:"spec" yaml:"spec"`
}

func newReport[T any](kind header.Kind, spec T) report[T] {
	return report[T]{
		Header: *header.New(header.WithKind(kind), header.WithMetadata("version", version)),
		Spec:   spec,
	}
}

// write serializes v to the output flag destination.
func write(ctx context.Context, cmd *cli.Command, v any) error {
	format, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}
	w := serializer.NewFileWriterOrStdout(format, cmd.String(flagOutput))
	defer func() { _ = w.Close() }()
	return w.Serialize(ctx, v)
}
