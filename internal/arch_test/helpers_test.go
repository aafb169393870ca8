package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
)

const (
	modulePath  = "github.com/papapumpkin/wzpatch"
	internalPfx = modulePath + "/internal/"
)

var (
	repoRootOnce sync.Once
	repoRootPath string
)

// repoRoot returns the directory holding go.mod, found by walking up from
// this file.
func repoRoot(t *testing.T) string {
	t.Helper()
	repoRootOnce.Do(func() {
		_, thisFile, _, ok := runtime.Caller(0)
		if !ok {
			return
		}
		for dir := filepath.Dir(thisFile); ; dir = filepath.Dir(dir) {
			if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
				repoRootPath = dir
				return
			}
			if filepath.Dir(dir) == dir {
				return
			}
		}
	})
	if repoRootPath == "" {
		t.Fatal("could not find go.mod above the arch tests")
	}
	return repoRootPath
}

func internalDirPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(repoRoot(t), "internal")
}

// internalPackages returns the packages under internal/ that hold non-test
// Go files, arch_test excluded.
func internalPackages(t *testing.T) []string {
	t.Helper()

	dir := internalDirPath(t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var pkgs []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "arch_test" {
			continue
		}
		if len(goFilesIn(t, filepath.Join(dir, e.Name()))) > 0 {
			pkgs = append(pkgs, e.Name())
		}
	}
	sort.Strings(pkgs)
	return pkgs
}

// goFilesIn returns the non-test .go files of dir.
func goFilesIn(t *testing.T, dir string) []string {
	t.Helper()
	return listGo(t, dir, false)
}

// allGoFilesIn returns every .go file of dir, tests included.
func allGoFilesIn(t *testing.T, dir string) []string {
	t.Helper()
	return listGo(t, dir, true)
}

func listGo(t *testing.T, dir string, tests bool) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading directory %s: %v", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if !tests && strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files
}

// parsePackage parses the non-test files of an internal package with
// comments.
func parsePackage(t *testing.T, pkg string) (*token.FileSet, []*ast.File) {
	t.Helper()

	fset := token.NewFileSet()
	var files []*ast.File
	for _, path := range goFilesIn(t, filepath.Join(internalDirPath(t), pkg)) {
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parsing %s: %v", path, err)
		}
		files = append(files, f)
	}
	return fset, files
}

// imports lists what an internal package imports from its non-test files.
type imports struct {
	// Internal holds sibling package names, e.g. "chunk".
	Internal []string
	// External holds every other import path.
	External []string
}

func importsOf(t *testing.T, pkg string) imports {
	t.Helper()

	_, files := parsePackage(t, pkg)
	internal := make(map[string]bool)
	external := make(map[string]bool)
	for _, f := range files {
		for _, imp := range f.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if rel, ok := strings.CutPrefix(path, internalPfx); ok {
				if i := strings.Index(rel, "/"); i >= 0 {
					rel = rel[:i]
				}
				internal[rel] = true
				continue
			}
			external[path] = true
		}
	}
	return imports{Internal: sortedKeys(internal), External: sortedKeys(external)}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// lineCount returns the number of lines in the file at path.
func lineCount(t *testing.T, path string) int {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	if len(data) == 0 {
		return 0
	}
	n := strings.Count(string(data), "\n")
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// relPath returns path relative to the repository root, slash-separated.
func relPath(t *testing.T, path string) string {
	t.Helper()
	rel, err := filepath.Rel(repoRoot(t), path)
	if err != nil {
		t.Fatalf("relative path of %s: %v", path, err)
	}
	return filepath.ToSlash(rel)
}

func TestInternalPackages_MatchLayerMap(t *testing.T) {
	t.Parallel()

	pkgs := internalPackages(t)
	seen := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		seen[p] = true
	}
	for p := range layers {
		if !seen[p] {
			t.Errorf("layers names %q but internal/%s has no Go files; remove the stale entry", p, p)
		}
	}
}
