// Package fsutil holds the write-to-temp-then-rename helpers used for every
// destructive replace, so a crash never leaves a half-written artifact under
// its final name.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TempSuffix is appended to the final path while a file is being written.
const TempSuffix = ".tmp"

// File is a pending replacement for a path. Writes go to path+TempSuffix
// until Commit renames it into place.
type File struct {
	*os.File
	path string
	done bool
}

// Create opens a temporary sibling of path for writing, creating parent
// directories as needed.
func Create(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path+TempSuffix, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	return &File{File: f, path: path}, nil
}

// Commit syncs and closes the temporary file and renames it over the final
// path.
func (f *File) Commit() error {
	if f.done {
		return errors.New("fsutil: file already committed or aborted")
	}
	f.done = true
	tmp := f.Name()
	if err := f.Sync(); err != nil {
		f.File.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing %s: %w", tmp, err)
	}
	if err := f.File.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit, so it is
// safe to defer.
func (f *File) Abort() {
	if f.done {
		return
	}
	f.done = true
	f.File.Close()
	os.Remove(f.Name())
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	f, err := Create(path)
	if err != nil {
		return err
	}
	defer f.Abort()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", f.Name(), err)
	}
	return f.Commit()
}

// CopyFile atomically replaces dst with the contents of src and returns the
// still-open pending file positioned at its start, so callers can modify the
// copy before committing it.
func CopyFile(dst, src string) (*File, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	f, err := Create(dst)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, in); err != nil {
		f.Abort()
		return nil, fmt.Errorf("copying %s: %w", src, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Abort()
		return nil, fmt.Errorf("rewinding %s: %w", f.Name(), err)
	}
	return f, nil
}
