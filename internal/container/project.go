package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/wzpatch/internal/chunk"
	"github.com/papapumpkin/wzpatch/internal/fsutil"
	"github.com/papapumpkin/wzpatch/internal/record"
	"github.com/papapumpkin/wzpatch/internal/stage"
	"github.com/papapumpkin/wzpatch/internal/ui"
)

// PlanItem is one record in build order.
type PlanItem struct {
	Name   string
	Path   string
	Edited bool
}

// Plan lists the records of unmodDir in natural filename order. Where modDir
// holds a file with the same name, that edited file is used instead.
func Plan(unmodDir, modDir string) ([]PlanItem, error) {
	entries, err := os.ReadDir(unmodDir)
	if err != nil {
		return nil, fmt.Errorf("container: list %s: %w", unmodDir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), record.RecordExt) {
			names = append(names, e.Name())
		}
	}
	record.SortNatural(names)

	items := make([]PlanItem, len(names))
	for i, n := range names {
		items[i] = PlanItem{Name: n, Path: filepath.Join(unmodDir, n)}
		if modDir == "" {
			continue
		}
		edited := filepath.Join(modDir, n)
		if info, err := os.Stat(edited); err == nil && info.Mode().IsRegular() {
			items[i] = PlanItem{Name: n, Path: edited, Edited: true}
		}
	}
	return items, nil
}

// Names returns the record names of a plan in order.
func Names(items []PlanItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

// Wrap prepends the template at templatePath to the container at path and
// atomically replaces path with the result.
func Wrap(path, templatePath string) error {
	tmpl, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("container: read template: %w", err)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("container: read %s: %w", path, err)
	}
	out := make([]byte, 0, len(tmpl)+len(body))
	out = append(append(out, tmpl...), body...)
	if err := fsutil.WriteFile(path, out); err != nil {
		return fmt.Errorf("container: wrap %s: %w", path, err)
	}
	return nil
}

// BuildOptions locates the inputs and outputs of BuildProject.
type BuildOptions struct {
	UnmodifiedDir string
	ModifiedDir   string
	Output        string
	Manifest      string
	// Template is the base blank prepended after the build. Empty skips the
	// wrapping step.
	Template string
}

// BuildResult summarises a project build.
type BuildResult struct {
	Records int
	Edited  int
	Size    int64
	Names   []string
}

// BuildProject builds the project container. The audio map is written
// before any record is combined, so the build order is durable even if the
// build is interrupted.
func BuildProject(ctx context.Context, opts BuildOptions, sink ui.UI) (BuildResult, error) {
	sink = ui.Or(sink)
	items, err := Plan(opts.UnmodifiedDir, opts.ModifiedDir)
	if err != nil {
		return BuildResult{}, err
	}
	names := Names(items)
	if err := WriteManifest(opts.Manifest, names); err != nil {
		return BuildResult{}, err
	}

	sink.StageStart(stage.Build, len(items))
	res := BuildResult{Names: names}
	entries := make([]Entry, 0, len(items))
	for i, it := range items {
		if err := stage.Checkpoint(ctx); err != nil {
			return res, err
		}
		data, err := os.ReadFile(it.Path)
		if err != nil {
			return res, fmt.Errorf("container: read %s: %w", it.Name, err)
		}
		entries = append(entries, Entry{Name: it.Name, Data: data})
		if it.Edited {
			res.Edited++
		}
		sink.StageProgress(stage.Build, i+1, len(items), it.Name)
	}

	out, err := Build(entries)
	if err != nil {
		return res, err
	}
	if err := fsutil.WriteFile(opts.Output, out); err != nil {
		return res, fmt.Errorf("container: write %s: %w", opts.Output, err)
	}
	if opts.Template != "" {
		if err := Wrap(opts.Output, opts.Template); err != nil {
			return res, err
		}
	}
	if info, err := os.Stat(opts.Output); err == nil {
		res.Size = info.Size()
	}
	res.Records = len(entries)
	sink.StageDone(stage.Build, fmt.Sprintf("%d record(s), %d edited, %s", res.Records, res.Edited, ui.Size(res.Size)))
	return res, nil
}

// Locate finds the container inside b, which may carry a template before
// it. It returns the offset of the RWAR root header.
func Locate(b []byte) (int, *Container, error) {
	sig := chunk.KindRWAR.Signature()
	for at := 0; at < len(b); {
		i := bytes.Index(b[at:], sig)
		if i < 0 {
			break
		}
		if c, err := Parse(b[at+i:]); err == nil {
			return at + i, c, nil
		}
		at += i + 4
	}
	return 0, nil, fmt.Errorf("%w: no container found", ErrMalformed)
}

// UnpackResult reports the records recovered from an edited container.
type UnpackResult struct {
	Written  []string
	Expected int
	Warnings []string
}

// Unpack recovers edited records from the container at containerPath and
// writes each one to outDir under the name the audio map gives its
// position. Records are found by walking RWAV signatures, so the container
// may carry a template or have been rewritten by the editing tool.
func Unpack(ctx context.Context, containerPath, manifestPath, outDir string, sink ui.UI) (UnpackResult, error) {
	sink = ui.Or(sink)
	names, err := LoadManifest(manifestPath)
	if err != nil {
		return UnpackResult{}, err
	}
	data, err := os.ReadFile(containerPath)
	if err != nil {
		return UnpackResult{}, fmt.Errorf("container: read %s: %w", containerPath, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return UnpackResult{}, fmt.Errorf("container: create %s: %w", outDir, err)
	}

	res := UnpackResult{Expected: len(names)}
	warn := func(msg string) {
		res.Warnings = append(res.Warnings, msg)
		sink.Warn(msg)
	}

	sink.StageStart(stage.Unpack, len(names))
	start := 0
	if at, _, err := Locate(data); err == nil {
		start = at
	}
	s := chunk.NewScanner(data, start, chunk.KindRWAV)
	for len(res.Written) < len(names) && s.Next() {
		if err := stage.Checkpoint(ctx); err != nil {
			return res, err
		}
		name := names[len(res.Written)]
		if err := fsutil.WriteFile(filepath.Join(outDir, name), s.Chunk().Bytes(data)); err != nil {
			return res, fmt.Errorf("container: write %s: %w", name, err)
		}
		res.Written = append(res.Written, name)
		sink.StageProgress(stage.Unpack, len(res.Written), len(names), name)
	}
	if err := s.Err(); err != nil {
		var ce *chunk.CorruptChunkError
		if !errors.As(err, &ce) {
			return res, fmt.Errorf("container: scan %s: %w", containerPath, err)
		}
		warn(fmt.Sprintf("stopped at bad record: %v", err))
	}
	if len(res.Written) < len(names) {
		warn(fmt.Sprintf("only %d record(s) found, audio map lists %d", len(res.Written), len(names)))
	}
	sink.StageDone(stage.Unpack, fmt.Sprintf("%d of %d record(s)", len(res.Written), len(names)))
	return res, nil
}
