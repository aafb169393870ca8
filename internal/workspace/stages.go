package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papapumpkin/wzpatch/internal/archive"
	"github.com/papapumpkin/wzpatch/internal/catalog"
	"github.com/papapumpkin/wzpatch/internal/chunk"
	"github.com/papapumpkin/wzpatch/internal/config"
	"github.com/papapumpkin/wzpatch/internal/container"
	"github.com/papapumpkin/wzpatch/internal/extract"
	"github.com/papapumpkin/wzpatch/internal/project"
	"github.com/papapumpkin/wzpatch/internal/selection"
	"github.com/papapumpkin/wzpatch/internal/stage"
	"github.com/papapumpkin/wzpatch/internal/telemetry"
	"github.com/papapumpkin/wzpatch/internal/ui"
)

// ScanReport lists the top-level chunks of one archive.
type ScanReport struct {
	Archive string
	Size    int64
	Kind    chunk.Kind
	Chunks  []chunk.Chunk
	// Records is the number of RWAV signatures across all chunks.
	Records  int
	Corrupt  int
	Warnings []string
}

// ScanArchive lists the chunks of the configured index kind in archive id,
// or in the primary archive when id is empty. Corrupt chunks are reported
// as warnings and scanning resumes past them.
func (w *Workspace) ScanArchive(ctx context.Context, id string) (ScanReport, error) {
	if id == "" {
		id = w.Config.Archives.Primary
	}
	kind := chunk.KindRWAR
	if w.Config.IndexMode == config.IndexModeRWSD {
		kind = chunk.KindRWSD
	}
	rep := ScanReport{Archive: id, Kind: kind}
	err := w.run("", stage.Scan, func(sink ui.UI) (any, error) {
		a, err := archive.Open(w.Root, id, archive.RolePrimary)
		if err != nil {
			return nil, err
		}
		defer a.Close()
		rep.Size = a.Size()

		total := len(a.Data)
		sink.StageStart(stage.Scan, total)
		s := chunk.NewScanner(a.Data, 0, kind)
		for {
			for s.Next() {
				if err := stage.Checkpoint(ctx); err != nil {
					return nil, err
				}
				c := s.Chunk()
				rep.Chunks = append(rep.Chunks, c)
				rep.Records += c.RWAVCount
				sink.StageProgress(stage.Scan, int(c.End()), total, fmt.Sprintf("%s@%08X", c.Kind, c.Offset))
			}
			err := s.Err()
			if err == nil {
				break
			}
			if !errors.Is(err, chunk.ErrCorruptChunk) {
				return nil, err
			}
			rep.Corrupt++
			rep.Warnings = append(rep.Warnings, err.Error())
			sink.Warn(err.Error())
			if !s.Resume() {
				break
			}
		}
		sink.StageDone(stage.Scan, fmt.Sprintf("%d %s chunk(s), %d record(s), %d corrupt",
			len(rep.Chunks), kind, rep.Records, rep.Corrupt))
		return map[string]int{"chunks": len(rep.Chunks), "records": rep.Records, "corrupt": rep.Corrupt}, nil
	})
	return rep, err
}

// Index splits the primary archive into the shared Indexes directory.
func (w *Workspace) Index(ctx context.Context) (extract.IndexResult, error) {
	var res extract.IndexResult
	err := w.run("", stage.Index, func(sink ui.UI) (any, error) {
		a, err := archive.Open(w.Root, w.Config.Archives.Primary, archive.RolePrimary)
		if err != nil {
			return nil, err
		}
		defer a.Close()

		res, err = extract.Index(ctx, a.Data, w.Layout("").IndexDir(), w.Config.IndexMode, sink)
		for _, d := range res.Duplicates {
			w.emit(telemetry.KindDuplicateRemoved, "", stage.Index, d)
		}
		return map[string]int{"containers": len(res.Containers), "skipped": res.Skipped, "duplicates": len(res.Duplicates)}, err
	})
	return res, err
}

// Resolve parses the instruction documents of p, merges them into one
// selection and saves it with the project. With docs given, they replace
// the documents stored in the project.
func (w *Workspace) Resolve(p *project.Project, docs ...string) (selection.Selection, error) {
	if len(docs) > 0 {
		p.Instructions = docs
	}
	l := w.Layout(p.Name)
	var all [][]selection.Instruction
	for _, doc := range p.Instructions {
		ins, err := selection.ParseFile(l.Instruction(doc))
		if err != nil {
			return selection.Selection{}, err
		}
		all = append(all, ins)
	}
	sel := selection.Resolve(all...)
	p.SetSelection(sel)
	if err := project.Save(w.Root, p); err != nil {
		return sel, err
	}
	return sel, nil
}

// Extract writes the selected records of p to its UnmodifiedRwavs
// directory and replaces the catalog's record set with them.
func (w *Workspace) Extract(ctx context.Context, p *project.Project) (extract.Result, error) {
	var res extract.Result
	err := w.run(p.Name, stage.Extract, func(sink ui.UI) (any, error) {
		sel, err := p.Resolved()
		if err != nil {
			return nil, err
		}
		if sel.Len() == 0 {
			sink.Warn("selection is empty; run resolve first")
		}
		l := w.Layout(p.Name)
		if err := os.MkdirAll(l.Modified(), 0o755); err != nil {
			return nil, fmt.Errorf("workspace: create %s: %w", l.Modified(), err)
		}
		res, err = extract.Extract(ctx, l.IndexDir(), sel, l.Unmodified(), sink)
		if err != nil {
			return nil, err
		}

		recs := make([]catalog.Record, 0, len(res.Records))
		for _, r := range res.Records {
			sum, err := extract.HashFile(filepath.Join(l.Unmodified(), r.Name()))
			if err != nil {
				return nil, err
			}
			recs = append(recs, catalog.Record{
				Name:      r.Name(),
				Container: r.ContainerID,
				Position:  int(r.Sequence),
				Size:      int64(r.Length),
				SHA256:    sum,
			})
			w.emit(telemetry.KindRecordExtracted, p.Name, stage.Extract, r)
		}
		for _, d := range res.Duplicates {
			w.emit(telemetry.KindDuplicateRemoved, p.Name, stage.Extract, d)
		}
		if err := w.Catalog.ReplaceRecords(ctx, p.Name, recs); err != nil {
			return nil, err
		}
		return map[string]int{"records": len(res.Records), "duplicates": len(res.Duplicates), "missing": len(res.Missing)}, nil
	})
	return res, err
}

// Build combines the records of p, preferring edited copies, into its
// container and audio map. The base blank template is prepended when it
// exists.
func (w *Workspace) Build(ctx context.Context, p *project.Project) (container.BuildResult, error) {
	var res container.BuildResult
	err := w.run(p.Name, stage.Build, func(sink ui.UI) (any, error) {
		l := w.Layout(p.Name)
		opts := container.BuildOptions{
			UnmodifiedDir: l.Unmodified(),
			ModifiedDir:   l.Modified(),
			Output:        l.Container(),
			Manifest:      l.Manifest(),
		}
		if tpl := w.path(w.Config.Archives.BaseBlank); fileExists(tpl) {
			opts.Template = tpl
		} else {
			sink.Warn(fmt.Sprintf("base blank %s not found; container written without it", w.Config.Archives.BaseBlank))
		}
		var err error
		if res, err = container.BuildProject(ctx, opts, sink); err != nil {
			return nil, err
		}
		w.emit(telemetry.KindContainerBuilt, p.Name, stage.Build, map[string]any{
			"path": l.Container(), "records": res.Records, "edited": res.Edited, "size": res.Size,
		})
		return map[string]any{"records": res.Records, "edited": res.Edited, "size": res.Size}, nil
	})
	return res, err
}

// Unpack splits an edited container back into ModifiedRwavs using the
// audio map of p. An empty path unpacks the project's own container.
func (w *Workspace) Unpack(ctx context.Context, p *project.Project, path string) (container.UnpackResult, error) {
	l := w.Layout(p.Name)
	if path == "" {
		path = l.Container()
	}
	var res container.UnpackResult
	err := w.run(p.Name, stage.Unpack, func(sink ui.UI) (any, error) {
		var err error
		res, err = container.Unpack(ctx, path, l.Manifest(), l.Modified(), sink)
		return map[string]int{"written": len(res.Written), "expected": res.Expected}, err
	})
	return res, err
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
