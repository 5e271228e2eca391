// Package errors provides structured error types for better observability
// and programmatic error handling across the bundle system.
//
// Lifecycle violations (NOT_INITIALIZED, ALREADY_INITIALIZED) and root
// misconfiguration (INVALID_DISCOVERY_ROOT) surface to callers. Per-bundle
// problems (MALFORMED_ARCHIVE, MISSING_DEPENDENCY, CYCLIC_DEPENDENCY) are
// logged and isolated to the bundle that caused them.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeMalformedArchive,
//	    "failed to parse bundle descriptor",
//	    cause,
//	    map[string]any{
//	        "archive": archivePath,
//	        "root":    root,
//	    },
//	)
//
//	if errors.HasCode(err, errors.ErrCodeNotInitialized) {
//	    // call Init first
//	}
package errors
