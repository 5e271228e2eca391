// Package bundle defines the core data model of the bundle system: the
// Coordinate identity triple, the parsed archive Descriptor, the
// LoadingContext namespace node and the Bundle that binds them.
//
// # Loading contexts
//
// Every bundle gets its own LoadingContext. A context owns the names declared
// in its descriptor and holds a back-reference to exactly one parent: the
// context of the bundle it depends on, or the root context. Name resolution
// checks the context's own names first and then walks the parent chain,
// terminating at the root:
//
//	root (capability contracts)
//	 └── com.example:foo-lib:0.1.0
//	      └── com.example:foo-impl:0.1.0
//
// foo-impl sees its own names, foo-lib's names and the root's contracts.
// Names owned by unrelated bundles are never visible.
//
// # Descriptor format
//
// Each archive carries a YAML manifest whose keys are prefixed with the
// configured meta id prefix (default "Bundle"):
//
//	Bundle-Group: com.example
//	Bundle-Id: foo-impl
//	Bundle-Version: 0.1.0
//	Bundle-Dependency-Group: com.example
//	Bundle-Dependency-Id: foo-lib
//	Bundle-Dependency-Version: 0.1.0
//	Bundle-Providers:
//	  - name: com.example.parsers.FooParser
//	    implements: [com.example.parsers.MessageParser]
//	    schema: schemas/foo-parser.json
//	Bundle-Names:
//	  - com.example.parsers.internal.FooLexer
//	Built-By: ci
//	Build-Timestamp: 2025-01-15T10:30:00Z
//
// # Ambient context
//
// Construction code finds its active loading context through the
// context.Context it is called with (WithLoadingContext / LoadingContextFrom)
// instead of thread-local state, so concurrent constructions never interfere.
package bundle
