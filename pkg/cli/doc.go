// Package cli implements the bundlectl command-line interface.
//
// # Commands
//
// map - Report which providers each capability has:
//
//	bundlectl map --config bundle.properties [--capability NAME]... [--format yaml|json|table]
//
// Discovers the archives under the configured library directories, builds
// their loading contexts and prints capability to provider assignments
// together with any configuration schema references.
//
// list - Initialize the bundle system and list loaded bundles:
//
//	bundlectl list --config bundle.properties [--output FILE]
//
// inspect - Print the descriptor and checksum of a single archive:
//
//	bundlectl inspect ARCHIVE [--prefix Bundle]
//
// serve - Serve the read-only introspection API:
//
//	bundlectl serve --config bundle.properties [--port 8080] [--watch]
//
// Exposes loaded bundles, capabilities and providers over HTTP along with
// /health, /ready and /metrics. With --watch, archives dropped into the
// primary library directory are added while the server runs.
//
// # Flags
//
//	--log-level   log level (debug, info, warn, error), global
//	--output, -o  output file (default stdout), report commands
//	--format, -t  output format (yaml, json, table), report commands
package cli
