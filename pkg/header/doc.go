// Package header provides the envelope stamped on bundlectl reports.
//
// Every report carries a Kind, an APIVersion and free-form Metadata so
// that saved output can be recognized and versioned:
//
//	kind: BundleList
//	apiVersion: bundles.nvidia.com/v1
//	metadata:
//	  timestamp: "2025-01-01T00:00:00Z"
//	  version: v0.3.0
//	spec:
//	  bundles: [...]
package header
