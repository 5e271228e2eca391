// Package defaults provides centralized timing constants for the bundle system.
//
// # Categories
//
//   - Discovery: archive watching and hot-add
//   - Handler timeouts: for HTTP request processing
//   - Server timeouts: for HTTP server configuration
//
// # Usage
//
//	ctx, cancel := context.WithTimeout(ctx, defaults.APIHandlerTimeout)
//	defer cancel()
package defaults
