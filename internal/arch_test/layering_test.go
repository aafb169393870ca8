package arch_test

import (
	"slices"
	"strings"
	"testing"
)

// layers assigns each internal package to a numeric layer. A package at
// layer N may only import packages at layer N or below.
var layers = map[string]int{
	"config":    0,
	"fsutil":    0,
	"record":    0,
	"stage":     0,
	"telemetry": 0,
	"ui":        0,

	"archive":   1,
	"catalog":   1,
	"chunk":     1,
	"selection": 1,
	"watch":     1,

	"container": 2,
	"extract":   2,
	"patch":     2,
	"project":   2,

	"workspace": 3,

	"tui": 4,
}

// leafPackages import no other internal package. chunk and record define
// the wire format and the record identity everything else builds on.
var leafPackages = []string{"chunk", "config", "fsutil", "record", "stage", "telemetry", "ui"}

// enginePackages read and write the sound-bank formats. They report through
// ui.UI and never reach the stores, the terminal view or the CLI.
var enginePackages = []string{"archive", "chunk", "container", "extract", "patch", "record", "selection"}

// engineForbidden lists what an engine package must not import: internal
// packages by name, external ones by path prefix.
var engineForbidden = struct {
	internal []string
	external []string
}{
	internal: []string{"catalog", "project", "telemetry", "tui", "watch", "workspace"},
	external: []string{
		modulePath + "/cmd",
		"database/sql",
		"modernc.org/sqlite",
		"github.com/charmbracelet/",
		"github.com/fsnotify/fsnotify",
		"github.com/spf13/",
	},
}

func TestDependencyLayering(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		importer, ok := layers[pkg]
		if !ok {
			continue
		}
		for _, imp := range importsOf(t, pkg).Internal {
			imported, ok := layers[imp]
			if ok && imported > importer {
				t.Errorf("layer violation: %s (layer %d) imports %s (layer %d)", pkg, importer, imp, imported)
			}
		}
	}
}

// TestNoUnknownPackages forces new packages to be placed in the layer map.
func TestNoUnknownPackages(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		if _, ok := layers[pkg]; !ok {
			t.Errorf("package %s has no layer assignment; add it to the layers map", pkg)
		}
	}
}

func TestLeafPackages(t *testing.T) {
	t.Parallel()

	for _, pkg := range leafPackages {
		if got := importsOf(t, pkg).Internal; len(got) > 0 {
			t.Errorf("%s must not import internal packages, imports %v", pkg, got)
		}
	}
}

func TestEngineIsolation(t *testing.T) {
	t.Parallel()

	for _, pkg := range enginePackages {
		pkg := pkg
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			imps := importsOf(t, pkg)
			for _, imp := range imps.Internal {
				if slices.Contains(engineForbidden.internal, imp) {
					t.Errorf("%s imports internal/%s", pkg, imp)
				}
			}
			for _, imp := range imps.External {
				for _, bad := range engineForbidden.external {
					if imp == bad || strings.HasPrefix(imp, bad) {
						t.Errorf("%s imports %s", pkg, imp)
					}
				}
			}
		})
	}
}

// TestOnlyArchiveMapsFiles keeps the read-only memory mapping in one place.
func TestOnlyArchiveMapsFiles(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		if pkg == "archive" {
			continue
		}
		for _, imp := range importsOf(t, pkg).External {
			if strings.HasPrefix(imp, "golang.org/x/sys") || imp == "syscall" {
				t.Errorf("%s imports %s; memory mapping belongs to internal/archive", pkg, imp)
			}
		}
	}
}
