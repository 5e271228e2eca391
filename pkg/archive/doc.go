// Package archive reads bundle archives from the local filesystem.
//
// An archive is a zip file carrying its descriptor at
// META-INF/bundle-manifest.yaml. A FileStore lists archives under a
// discovery root, extracts each one into a per-session working area and
// exposes the extracted descriptor and files:
//
//	store, err := archive.NewFileStore(workDir)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	names, err := store.List(root, "bundle")
//	dir, err := store.Extract(ctx, filepath.Join(root, names[0]))
//	manifest, err := store.ReadDescriptor(dir)
//
// Extraction is keyed by the archive's SHA256 digest, so extracting an
// unchanged archive twice returns the first directory.
package archive
