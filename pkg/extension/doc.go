// Package extension indexes the providers contributed by loaded bundles and
// constructs them by name.
//
// A Registry is initialized once with the capability contracts the host
// cares about and the bundles produced by discovery. A provider conforms to
// a capability when its descriptor declares it, the capability was
// requested, and the capability name is visible from the provider's
// bundle context. Init twice without Reset fails with ALREADY_INITIALIZED;
// lookups before Init fail with NOT_INITIALIZED.
//
// Providers are constructed through a Catalog, a table of factories keyed
// by provider name. Provider packages register their factories from init:
//
//	func init() {
//	    extension.MustRegister("com.example.parsers.FooParser", extension.Factory{
//	        NewWithConfig: func(ctx context.Context, cfg config.PropertySource) (any, error) {
//	            return NewFooParser(cfg)
//	        },
//	    })
//	}
//
// InstanceFactory ties both together: it finds the owning bundle, binds the
// bundle's loading context into ctx and runs the factory.
package extension
