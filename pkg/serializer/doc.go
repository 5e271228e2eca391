// Package serializer writes and reads structured data in JSON, YAML and
// table form for the bundlectl commands.
//
// Usage:
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, path)
//	defer w.Close()
//	if err := w.Serialize(ctx, mapping); err != nil {
//	    return err
//	}
//
// Table output flattens nested structures into dotted keys. Reading is
// supported for JSON and YAML only:
//
//	caps, err := serializer.FromFile[[]string]("capabilities.yaml")
package serializer
