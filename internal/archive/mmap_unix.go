//go:build unix

package archive

import (
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps f read-only. Writes through the returned slice fault, which
// keeps archives immutable for as long as they are open.
func mapFile(f *os.File, size int) ([]byte, func() error, error) {
	if size == 0 {
		return nil, func() error { return nil }, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
