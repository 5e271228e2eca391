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

package api

import (
	"context"

	"github.com/NVIDIA/bundles/pkg/logging"
	"github.com/NVIDIA/bundles/pkg/server"
	"github.com/NVIDIA/bundles/pkg/system"
)

const name = "bundles-api"

// Option customizes Serve.
type Option func(*serveOptions)

type serveOptions struct {
	watch   bool
	version string
	server  []server.Option
}

// WithWatch runs the library watcher next to the server.
func WithWatch(watch bool) Option {
	return func(o *serveOptions) {
		o.watch = watch
	}
}

// WithVersion sets the version reported by the root route.
func WithVersion(version string) Option {
	return func(o *serveOptions) {
		o.version = version
	}
}

// WithServerOptions passes options through to the HTTP server.
func WithServerOptions(opts ...server.Option) Option {
	return func(o *serveOptions) {
		o.server = append(o.server, opts...)
	}
}

// NewServer builds the HTTP server for an initialized System.
func NewServer(sys *system.System, opts ...Option) *server.Server {
	o := applyOptions(opts)
	return newServer(sys, o)
}

func applyOptions(opts []Option) *serveOptions {
	o := &serveOptions{version: "dev"}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newServer(sys *system.System, o *serveOptions) *server.Server {
	serverOpts := append(o.server,
		server.WithName(name),
		server.WithVersion(o.version),
		server.WithHandler(NewHandler(sys).Routes()),
	)
	return server.New(serverOpts...)
}

// Serve runs the API for sys until ctx is done. sys must be initialized.
func Serve(ctx context.Context, sys *system.System, opts ...Option) error {
	o := applyOptions(opts)
	s := newServer(sys, o)

	var tasks []func(context.Context) error
	if o.watch {
		tasks = append(tasks, func(ctx context.Context) error {
			return watch(ctx, sys)
		})
	}

	if err := s.Run(ctx, tasks...); err != nil {
		logging.FromContext(ctx).Error("server exited with error", "error", err)
		return err
	}
	return nil
}

// watch logs every archive the watcher adds until ctx is done.
func watch(ctx context.Context, sys *system.System) error {
	added, err := sys.Watch(ctx)
	if err != nil {
		return err
	}
	log := logging.FromContext(ctx)
	for archive := range added {
		log.Info("bundle archive added", "archive", archive)
	}
	return nil
}
