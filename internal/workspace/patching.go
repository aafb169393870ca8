package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papapumpkin/wzpatch/internal/archive"
	"github.com/papapumpkin/wzpatch/internal/catalog"
	"github.com/papapumpkin/wzpatch/internal/extract"
	"github.com/papapumpkin/wzpatch/internal/patch"
	"github.com/papapumpkin/wzpatch/internal/project"
	"github.com/papapumpkin/wzpatch/internal/stage"
	"github.com/papapumpkin/wzpatch/internal/telemetry"
	"github.com/papapumpkin/wzpatch/internal/ui"
	"github.com/papapumpkin/wzpatch/internal/watch"
)

// DefaultPatchedDir receives patched archive copies when no output root is
// given.
const DefaultPatchedDir = "Patched"

// Check classifies the edited records of p and stores each state in the
// catalog.
func (w *Workspace) Check(ctx context.Context, p *project.Project) (patch.Report, error) {
	var rep patch.Report
	err := w.run(p.Name, stage.Check, func(sink ui.UI) (any, error) {
		l := w.Layout(p.Name)
		var err error
		if rep, err = patch.Check(l.Unmodified(), l.Modified(), nil); err != nil {
			return nil, err
		}
		total := len(rep.Edited) + len(rep.Unchanged) + len(rep.TooBig)
		sink.StageStart(stage.Check, total)
		done := 0
		record := func(name string, status catalog.EditStatus) error {
			if err := stage.Checkpoint(ctx); err != nil {
				return err
			}
			e, err := w.editState(l, name, status)
			if err != nil {
				return err
			}
			done++
			sink.StageProgress(stage.Check, done, total, name)
			return w.Catalog.SetEdit(ctx, p.Name, e)
		}
		for _, name := range rep.Edited {
			if err := record(name, catalog.EditEdited); err != nil {
				return nil, err
			}
		}
		for _, name := range rep.Unchanged {
			if err := record(name, catalog.EditUnchanged); err != nil {
				return nil, err
			}
		}
		for _, se := range rep.TooBig {
			sink.Warn(se.Error())
			if err := record(se.Record, catalog.EditTooBig); err != nil {
				return nil, err
			}
		}
		sink.StageDone(stage.Check, fmt.Sprintf("%d edited, %d unchanged, %d too big, %d untouched",
			len(rep.Edited), len(rep.Unchanged), len(rep.TooBig), len(rep.Untouched)))
		return map[string]int{"edited": len(rep.Edited), "unchanged": len(rep.Unchanged), "too_big": len(rep.TooBig)}, nil
	})
	return rep, err
}

// editState reads the size and digest of an edited record.
func (w *Workspace) editState(l project.Layout, name string, status catalog.EditStatus) (catalog.Edit, error) {
	path := filepath.Join(l.Modified(), name)
	info, err := os.Stat(path)
	if err != nil {
		return catalog.Edit{}, fmt.Errorf("workspace: stat %s: %w", name, err)
	}
	sum, err := extract.HashFile(path)
	if err != nil {
		return catalog.Edit{}, err
	}
	return catalog.Edit{Name: name, Size: info.Size(), SHA256: sum, Status: status}, nil
}

// GeneratePatch finds every occurrence of each edited record of p in the
// project's archives and writes a release: the patch file plus the edited
// records it refers to.
func (w *Workspace) GeneratePatch(ctx context.Context, p *project.Project) (patch.Result, patch.Released, error) {
	var res patch.Result
	var rel patch.Released
	err := w.run(p.Name, stage.Patch, func(sink ui.UI) (any, error) {
		set, err := archive.Discover(w.Root, w.Config.Archives, p.AllowSideArchives)
		if err != nil {
			return nil, err
		}
		defer set.Close()

		l := w.Layout(p.Name)
		if res, err = patch.Generate(ctx, set.All(), l.Unmodified(), l.Modified(), p.SkipList, sink); err != nil {
			return nil, err
		}
		if rel, err = patch.Release(l.ReleaseDir(), p.Name, res, l.Modified()); err != nil {
			return nil, err
		}
		for _, se := range res.TooBig {
			e := catalog.Edit{Name: se.Record, Size: se.Edited, Status: catalog.EditTooBig}
			if err := w.Catalog.SetEdit(ctx, p.Name, e); err != nil {
				return nil, err
			}
		}
		run, err := w.Catalog.AddRun(ctx, p.Name, catalog.Run{
			Kind:     catalog.RunPatch,
			Entries:  len(rel.Entries),
			TooBig:   len(res.TooBig),
			Warnings: len(res.Warnings),
		})
		if err != nil {
			return nil, err
		}
		w.emit(telemetry.KindPatchGenerated, p.Name, stage.Patch, map[string]any{
			"run": run.ID, "file": rel.PatchFile, "entries": len(rel.Entries), "records": len(rel.Copied),
		})
		return map[string]int{"entries": len(rel.Entries), "too_big": len(res.TooBig), "not_found": len(res.NotFound)}, nil
	})
	return res, rel, err
}

// ApplyOptions overrides where ApplyPatch reads and writes. Empty fields
// default to the project's release directory and DefaultPatchedDir.
type ApplyOptions struct {
	ReleaseDir string
	OutRoot    string
}

// ApplyPatch applies a release to copies of the pristine archives in the
// work directory. The unmodified records of p, when present, supply the
// original record lengths.
func (w *Workspace) ApplyPatch(ctx context.Context, p *project.Project, opts ApplyOptions) (patch.Applied, error) {
	l := w.Layout(p.Name)
	if opts.ReleaseDir == "" {
		opts.ReleaseDir = l.ReleaseDir()
	}
	if opts.OutRoot == "" {
		opts.OutRoot = DefaultPatchedDir
	}
	var res patch.Applied
	err := w.run(p.Name, stage.Apply, func(sink ui.UI) (any, error) {
		file, err := patch.FindPatchFile(opts.ReleaseDir)
		if err != nil {
			return nil, err
		}
		entries, err := patch.ReadFile(file, w.Config.Archives.Primary)
		if err != nil {
			return nil, err
		}
		res, err = patch.Apply(ctx, patch.ApplyOptions{
			BaseRoot:      w.Root,
			OutRoot:       w.path(opts.OutRoot),
			ReleaseDir:    opts.ReleaseDir,
			UnmodifiedDir: l.Unmodified(),
		}, entries, sink)
		if err != nil {
			return nil, err
		}
		run, err := w.Catalog.AddRun(ctx, p.Name, catalog.Run{
			Kind:     catalog.RunApply,
			Entries:  res.Entries,
			Warnings: len(res.Warnings),
		})
		if err != nil {
			return nil, err
		}
		w.emit(telemetry.KindPatchApplied, p.Name, stage.Apply, map[string]any{
			"run": run.ID, "file": file, "outputs": res.Outputs, "entries": res.Entries, "skipped": res.Skipped,
		})
		return map[string]int{"entries": res.Entries, "skipped": res.Skipped, "archives": len(res.Outputs)}, nil
	})
	return res, err
}

// TrackEdits watches the ModifiedRwavs directory of p until ctx is done.
// Each settled change is classified against the unmodified record, stored in
// the catalog and passed to onChange.
func (w *Workspace) TrackEdits(ctx context.Context, p *project.Project, onChange func(catalog.Edit)) error {
	l := w.Layout(p.Name)
	if err := os.MkdirAll(l.Modified(), 0o755); err != nil {
		return fmt.Errorf("workspace: create %s: %w", l.Modified(), err)
	}
	wt, err := watch.New(l.Modified())
	if err != nil {
		return fmt.Errorf("workspace: create watcher: %w", err)
	}
	if err := wt.Start(); err != nil {
		return fmt.Errorf("workspace: watch %s: %w", l.Modified(), err)
	}
	defer wt.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-wt.Changes:
			if !ok {
				return nil
			}
			e, tracked, err := w.classify(l, c)
			if err != nil {
				w.sink.Warn(err.Error())
				continue
			}
			if !tracked {
				continue
			}
			if err := w.Catalog.SetEdit(ctx, p.Name, e); err != nil {
				return err
			}
			w.emit(telemetry.KindEditDetected, p.Name, "", e)
			if onChange != nil {
				onChange(e)
			}
		}
	}
}

// classify turns a file change into an edit state. Files that match no
// unmodified record are not tracked.
func (w *Workspace) classify(l project.Layout, c watch.Change) (catalog.Edit, bool, error) {
	if _, err := os.Stat(filepath.Join(l.Unmodified(), c.Name)); err != nil {
		return catalog.Edit{}, false, nil
	}
	if c.Kind == watch.ChangeRemoved {
		return catalog.Edit{Name: c.Name, Status: catalog.EditRemoved}, true, nil
	}
	rep, err := patch.Check(l.Unmodified(), l.Modified(), []string{c.Name})
	if err != nil {
		return catalog.Edit{}, false, err
	}
	var status catalog.EditStatus
	switch {
	case len(rep.TooBig) > 0:
		status = catalog.EditTooBig
	case len(rep.Unchanged) > 0:
		status = catalog.EditUnchanged
	case len(rep.Edited) > 0:
		status = catalog.EditEdited
	default:
		// Removed again before the change settled.
		return catalog.Edit{Name: c.Name, Status: catalog.EditRemoved}, true, nil
	}
	e, err := w.editState(l, c.Name, status)
	return e, err == nil, err
}

// Status summarises what the catalog knows about p.
func (w *Workspace) Status(ctx context.Context, p *project.Project) (catalog.Summary, error) {
	return w.Catalog.Summarize(ctx, p.Name)
}
