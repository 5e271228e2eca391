// Package api exposes a running bundle system over a read-only HTTP API.
//
// It is a thin layer over pkg/server: it registers the introspection
// routes, marks the server ready once the system is initialized and,
// optionally, runs the library watcher next to the server so archives
// dropped into the primary root appear without a restart.
//
// # Routes
//
//	GET /v1/bundles                           loaded bundles
//	GET /v1/bundles/{group}/{id}/{version}    one bundle by coordinate
//	GET /v1/capabilities                      registered capability contracts
//	GET /v1/extensions?capability=NAME        provider names for a capability
//	GET /v1/providers/{name}                  bundles owning a provider
//	GET /v1/warnings                          per-bundle problems since Init
//
// # Usage
//
//	sys, _ := system.New(system.WithProperties(props))
//	if err := sys.Init(ctx); err != nil {
//	    return err
//	}
//	return api.Serve(ctx, sys, api.WithWatch(true))
package api
