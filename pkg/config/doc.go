// Package config provides the key/value property source consumed by the
// bundle system, plus typed accessors for the keys the system understands.
//
// # Keys
//
//	bundle.library.directory          primary discovery root (default ./lib/)
//	bundle.library.directory.<name>   alternate discovery roots
//	bundle.archive.extension          archive file extension (default "bundle")
//	bundle.meta.id.prefix             descriptor key prefix (default "Bundle")
//	bundle.extension.type.<name>      capability contracts declared in configuration
//	bundle.working.directory          extraction area (default: OS temp dir)
//
// # Loading
//
// LoadProperties reads YAML, JSON or TOML files through viper and Java-style
// .properties files through a line parser. Keys are flat and dotted in every
// format; nested YAML maps are flattened with "." separators.
//
//	props, err := config.LoadProperties("conf/bundle.properties", map[string]string{
//	    config.KeyLibraryDirectory: "/opt/bundles",
//	})
//	roots := config.LibraryDirectories(props)
package config
