package arch_test

import (
	"path/filepath"
	"testing"
)

const (
	maxFilesPerPackage = 8
	maxLinesPerFile    = 400
)

// coreBudgets caps the files holding the binary formats below the general
// limit. Each one reads or writes a single layout and should stay readable
// next to its format description.
var coreBudgets = map[string]int{
	"internal/chunk/kind.go":          120,
	"internal/chunk/repair.go":        80,
	"internal/chunk/scanner.go":       320,
	"internal/container/container.go": 220,
	"internal/container/manifest.go":  160,
	"internal/patch/apply.go":         280,
	"internal/patch/file.go":          140,
	"internal/patch/generate.go":      160,
	"internal/record/record.go":       160,
}

func TestPackageFileCount(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		if n := len(goFilesIn(t, filepath.Join(internalDirPath(t), pkg))); n > maxFilesPerPackage {
			t.Errorf("package %s has %d .go files (limit %d); consider splitting", pkg, n, maxFilesPerPackage)
		}
	}
}

func TestFileLineCount(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		for _, path := range allGoFilesIn(t, filepath.Join(internalDirPath(t), pkg)) {
			if n := lineCount(t, path); n > maxLinesPerFile {
				t.Errorf("%s has %d lines (limit %d); consider decomposing", relPath(t, path), n, maxLinesPerFile)
			}
		}
	}
}

func TestCoreFileBudgets(t *testing.T) {
	t.Parallel()

	for rel, budget := range coreBudgets {
		path := filepath.Join(repoRoot(t), filepath.FromSlash(rel))
		if n := lineCount(t, path); n > budget {
			t.Errorf("%s has %d lines (budget %d)", rel, n, budget)
		}
	}
}
