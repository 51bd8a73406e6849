//go:build unix

package metadata

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsyncDir fsyncs the containing directory after an atomic rename, so
// the rename itself is durable across a crash — not just the file
// contents. Some filesystems (notably network filesystems) reject
// fsync on a directory descriptor; that is treated as a best-effort
// no-op rather than an error, per §4.3's "skipping directory fsync on
// platforms where it is unsupported".
func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := unix.Fsync(int(f.Fd())); err != nil {
		if err == unix.ENOTSUP || err == unix.EINVAL {
			return nil
		}
		return err
	}
	return nil
}
