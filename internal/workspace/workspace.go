// Package workspace ties the pipeline stages to one work directory. It
// resolves the vendor archives and project directories from configuration,
// runs each stage with a progress sink and cancellation, records what the
// stage did in the catalog, and emits telemetry events.
//
// A typical session:
//
//	ws, err := workspace.Open(ctx, cfg, sink)
//	defer ws.Close()
//	p, err := ws.Project("")
//	res, err := ws.Extract(ctx, p)
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/papapumpkin/wzpatch/internal/catalog"
	"github.com/papapumpkin/wzpatch/internal/config"
	"github.com/papapumpkin/wzpatch/internal/project"
	"github.com/papapumpkin/wzpatch/internal/stage"
	"github.com/papapumpkin/wzpatch/internal/telemetry"
	"github.com/papapumpkin/wzpatch/internal/ui"
)

// ErrNoProject is returned when no project was named on the command line or
// in configuration.
var ErrNoProject = errors.New("no project selected (use --project or set project in .wzpatch.yaml)")

// Workspace is an open work directory.
type Workspace struct {
	Root    string
	Config  config.Config
	Catalog *catalog.Catalog

	events *telemetry.Emitter
	sink   ui.UI
	now    func() time.Time
}

// Open resolves cfg.WorkDir and opens the catalog and, when enabled, the
// telemetry stream. A nil sink discards progress.
func Open(ctx context.Context, cfg config.Config, sink ui.UI) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve %s: %w", cfg.WorkDir, err)
	}
	w := &Workspace{Root: root, Config: cfg, sink: ui.Or(sink), now: time.Now}

	if w.Catalog, err = catalog.Open(ctx, w.path(cfg.CatalogPath)); err != nil {
		return nil, err
	}
	if cfg.Telemetry {
		if w.events, err = telemetry.NewEmitter(w.path(telemetry.DefaultPath)); err != nil {
			w.Catalog.Close()
			return nil, err
		}
	}
	return w, nil
}

// Close releases the catalog and the telemetry stream.
func (w *Workspace) Close() error {
	return errors.Join(w.events.Close(), w.Catalog.Close())
}

// TelemetryPath returns the event stream location, enabled or not.
func (w *Workspace) TelemetryPath() string {
	return w.path(telemetry.DefaultPath)
}

// path resolves a configured path against the work directory.
func (w *Workspace) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.Root, filepath.FromSlash(p))
}

// Layout returns the directory layout of project name.
func (w *Workspace) Layout(name string) project.Layout {
	return project.NewLayout(w.Root, name)
}

// CreateProject creates project name and its directories.
func (w *Workspace) CreateProject(name string, allowSide bool) (*project.Project, error) {
	return project.Create(w.Root, name, allowSide, w.now())
}

// Project loads project name, falling back to the configured project.
func (w *Workspace) Project(name string) (*project.Project, error) {
	if name == "" {
		name = w.Config.Project
	}
	if name == "" {
		return nil, ErrNoProject
	}
	return project.Load(w.Root, name)
}

// Projects lists the projects of the work directory.
func (w *Workspace) Projects() ([]string, error) {
	return project.List(w.Root)
}

// emit records one telemetry event. Telemetry never fails a stage.
func (w *Workspace) emit(kind, proj, stageName string, data any) {
	if err := w.events.Emit(telemetry.Event{Kind: kind, Project: proj, Stage: stageName, Data: data}); err != nil && w.Config.Verbose {
		w.sink.Warn(fmt.Sprintf("telemetry: %v", err))
	}
}

// run wraps one stage with start and finish events. fn receives a sink that
// also records warnings as telemetry, and returns the data logged with the
// finish event.
func (w *Workspace) run(proj, stageName string, fn func(sink ui.UI) (any, error)) error {
	w.emit(telemetry.KindStageStart, proj, stageName, nil)
	start := w.now()
	data, err := fn(recorder{UI: w.sink, w: w, project: proj, stage: stageName})
	elapsed := w.now().Sub(start).Round(time.Millisecond).String()
	switch {
	case stage.IsCancelled(err):
		w.emit(telemetry.KindStageCancelled, proj, stageName, map[string]any{"elapsed": elapsed})
	case err != nil:
		w.emit(telemetry.KindStageDone, proj, stageName, map[string]any{"elapsed": elapsed, "error": err.Error()})
	default:
		w.emit(telemetry.KindStageDone, proj, stageName, map[string]any{"elapsed": elapsed, "result": data})
	}
	return err
}

// recorder forwards to the session sink and logs every warning.
type recorder struct {
	ui.UI
	w       *Workspace
	project string
	stage   string
}

// Warn reports msg and records it as a warning event.
func (r recorder) Warn(msg string) {
	r.UI.Warn(msg)
	r.w.emit(telemetry.KindWarning, r.project, r.stage, map[string]string{"message": msg})
}
