// Package server provides the HTTP server behind the bundle introspection API.
//
// The server wraps every registered handler with a common middleware chain:
//
//   - Prometheus RED metrics per route
//   - API version negotiation via the Accept header
//   - Request ID propagation (X-Request-Id, validated as a UUID)
//   - Panic recovery
//   - Token bucket rate limiting (golang.org/x/time/rate)
//   - Request logging with the request ID bound to the context logger
//
// /health, /ready and /metrics are registered without middleware.
//
// # Usage
//
//	s := server.New(
//	    server.WithName("bundlectl"),
//	    server.WithHandler(map[string]http.HandlerFunc{
//	        "/v1/bundles": h.handleBundles,
//	    }),
//	)
//	if err := s.Run(ctx); err != nil {
//	    return err
//	}
//
// # Configuration
//
// PORT and SHUTDOWN_TIMEOUT_SECONDS override the listen port and the
// graceful shutdown timeout.
//
// # Errors
//
// Handlers report failures with WriteErrorFromErr, which maps the code of a
// structured error to an HTTP status:
//
//	{
//	  "code": "NOT_FOUND",
//	  "message": "no bundle with coordinate",
//	  "requestId": "4c1f...",
//	  "timestamp": "2025-01-01T00:00:00Z",
//	  "retryable": false
//	}
package server
