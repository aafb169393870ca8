//go:build !unix

package archive

import (
	"io"
	"os"
)

// mapFile reads f fully into memory on platforms without mmap support.
func mapFile(f *os.File, size int) ([]byte, func() error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, func() error { return nil }, nil
}
