//go:build !unix

package metadata

// fsyncDir is a no-op on platforms (Windows) where directory fsync is
// not meaningfully supported by the standard library.
func fsyncDir(dir string) error {
	return nil
}
