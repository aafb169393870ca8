package patch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/wzpatch/internal/fsutil"
	"github.com/papapumpkin/wzpatch/internal/record"
)

// ErrNoPatchFile indicates a release directory without a .patch file.
var ErrNoPatchFile = errors.New("no patch file in release")

// Released describes a written release.
type Released struct {
	PatchFile string
	Copied    []string
	Entries   []Entry
}

// Release writes a self-contained release to dir: a copy of every edited
// record that has entries, and <name>.patch listing only those records.
// Stale .rwav and .patch files in dir are removed first, so the patch file
// and the record files always agree.
func Release(dir, name string, res Result, modDir string) (Released, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Released{}, fmt.Errorf("patch: create %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Released{}, fmt.Errorf("patch: list %s: %w", dir, err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.Type().IsRegular() && (ext == record.RecordExt || ext == Ext) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return Released{}, fmt.Errorf("patch: remove stale %s: %w", e.Name(), err)
			}
		}
	}

	out := Released{PatchFile: filepath.Join(dir, name+Ext)}
	copied := make(map[string]bool)
	for _, rec := range res.Records() {
		data, err := os.ReadFile(filepath.Join(modDir, rec))
		if err != nil {
			return out, fmt.Errorf("patch: read edited %s: %w", rec, err)
		}
		if err := fsutil.WriteFile(filepath.Join(dir, rec), data); err != nil {
			return out, fmt.Errorf("patch: copy %s: %w", rec, err)
		}
		copied[rec] = true
		out.Copied = append(out.Copied, rec)
	}
	for _, e := range res.Entries {
		if copied[e.Record] {
			out.Entries = append(out.Entries, e)
		}
	}
	if err := WriteFile(out.PatchFile, out.Entries); err != nil {
		return out, err
	}
	return out, nil
}

// FindPatchFile returns the first .patch file in dir in natural order.
func FindPatchFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("patch: list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), Ext) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("patch: %s: %w", dir, ErrNoPatchFile)
	}
	record.SortNatural(names)
	return filepath.Join(dir, names[0]), nil
}
