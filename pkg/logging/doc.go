// Package logging provides structured logging utilities for the bundle system.
//
// # Overview
//
// This package wraps the standard library slog package with project defaults
// so that discovery, registry, and construction logs share one format. It
// supports environment-based log level configuration, module/version context
// injection, and context-carried loggers for per-root and per-bundle attributes.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Per-bundle problems that do not abort discovery
//   - ERROR: Failures requiring attention
//
// # Usage
//
// Setting the default logger:
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("bundlectl", version)
//	    slog.Info("bundle system starting")
//	}
//
// Attaching attributes for a scope:
//
//	ctx = logging.WithAttrs(ctx, "root", root)
//	logging.FromContext(ctx).Warn("archive skipped", "archive", name)
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls logging verbosity:
//
//	LOG_LEVEL=debug bundlectl map --config bundle.properties
//
// # Output Format
//
// All logs are written to stderr in JSON format:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "WARN",
//	    "msg": "dependency not found, loading against root context",
//	    "module": "bundlectl",
//	    "version": "v0.1.0",
//	    "coordinate": "com.example:foo-lib-bundle:0.1.0"
//	}
package logging
