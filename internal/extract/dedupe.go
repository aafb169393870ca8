package extract

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/wzpatch/internal/stage"
)

// Duplicate names a file that was removed because its bytes match a file
// earlier in the same pass.
type Duplicate struct {
	Name     string
	Original string
}

// Dedupe hashes paths in the given order and deletes every file whose
// content matches an earlier one. The first path with given content always
// survives.
func Dedupe(ctx context.Context, paths []string) ([]Duplicate, error) {
	seen := make(map[[sha256.Size]byte]string, len(paths))
	var dups []Duplicate
	for _, p := range paths {
		if err := stage.Checkpoint(ctx); err != nil {
			return dups, err
		}
		sum, err := hashFile(p)
		if err != nil {
			return dups, err
		}
		first, ok := seen[sum]
		if !ok {
			seen[sum] = p
			continue
		}
		if err := os.Remove(p); err != nil {
			return dups, fmt.Errorf("extract: remove duplicate: %w", err)
		}
		dups = append(dups, Duplicate{Name: filepath.Base(p), Original: filepath.Base(first)})
	}
	return dups, nil
}

// HashFile returns the hex sha256 of the file at path.
func HashFile(path string) (string, error) {
	sum, err := hashFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sum), nil
}

func hashFile(path string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte
	f, err := os.Open(path)
	if err != nil {
		return sum, fmt.Errorf("extract: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, fmt.Errorf("extract: hash %s: %w", path, err)
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// clearStale creates dir and removes the regular files in it that match.
func clearStale(dir string, match func(name string) bool) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("extract: create %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("extract: list %s: %w", dir, err)
	}
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !match(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, fmt.Errorf("extract: remove stale %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func hasExt(name, ext string) bool {
	return strings.EqualFold(filepath.Ext(name), ext)
}
