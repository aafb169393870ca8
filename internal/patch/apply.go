package patch

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/papapumpkin/wzpatch/internal/archive"
	"github.com/papapumpkin/wzpatch/internal/chunk"
	"github.com/papapumpkin/wzpatch/internal/fsutil"
	"github.com/papapumpkin/wzpatch/internal/stage"
	"github.com/papapumpkin/wzpatch/internal/ui"
)

// ApplyOptions locates the inputs and outputs of Apply.
type ApplyOptions struct {
	// BaseRoot holds the pristine archives, addressed by entry archive id.
	BaseRoot string
	// OutRoot receives the patched copies under the same relative paths.
	OutRoot string
	// ReleaseDir holds the edited record files.
	ReleaseDir string
	// UnmodifiedDir, when set, gives the original length of each record.
	// Without it the length is read from the RWAV header at the offset.
	UnmodifiedDir string
}

// Applied summarises an Apply run.
type Applied struct {
	// Outputs are the patched archive paths, one per archive.
	Outputs  []string
	Entries  int
	Skipped  int
	Warnings []string
}

// Apply writes a patched copy of every archive named by entries. Each copy
// is built under a temporary name and renamed into place only once all of
// its entries are written. Within an archive, entries are applied in
// ascending offset order: the edited bytes overwrite the original and the
// rest of the original length is zero-filled, so the archive keeps its
// length.
//
// Missing archives, missing record files and edits that would grow a record
// are skipped with a warning. The base archives are never written:
// ErrInPlace is returned when OutRoot is BaseRoot or an output path names
// its base file.
func Apply(ctx context.Context, opts ApplyOptions, entries []Entry, sink ui.UI) (Applied, error) {
	sink = ui.Or(sink)
	var res Applied
	if sameDir(opts.BaseRoot, opts.OutRoot) {
		return res, fmt.Errorf("patch: %w: output root %s", ErrInPlace, opts.OutRoot)
	}
	warn := func(msg string) {
		res.Warnings = append(res.Warnings, msg)
		sink.Warn(msg)
	}

	groups := make(map[string][]Entry)
	for _, e := range entries {
		groups[e.Archive] = append(groups[e.Archive], e)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	a := applier{opts: opts, records: make(map[string][]byte), warn: warn}
	sink.StageStart(stage.Apply, len(entries))
	done := 0
	for _, id := range ids {
		if err := stage.Checkpoint(ctx); err != nil {
			return res, err
		}
		group := groups[id]
		Sort(group)
		out, applied, skipped, err := a.patchArchive(ctx, id, group, func(e Entry) {
			done++
			sink.StageProgress(stage.Apply, done, len(entries), e.Record)
		})
		res.Entries += applied
		res.Skipped += skipped
		if err != nil {
			return res, err
		}
		if out != "" {
			res.Outputs = append(res.Outputs, out)
		}
	}
	sink.StageDone(stage.Apply, fmt.Sprintf("%d entries into %d archive(s), %d skipped",
		res.Entries, len(res.Outputs), res.Skipped))
	return res, nil
}

type applier struct {
	opts    ApplyOptions
	records map[string][]byte
	warn    func(string)
}

// patchArchive patches one archive copy. It returns an empty path when the base
// archive is missing.
func (a *applier) patchArchive(ctx context.Context, id string, group []Entry, progress func(Entry)) (string, int, int, error) {
	base, err := archive.ResolvePath(a.opts.BaseRoot, id)
	if err != nil {
		return "", 0, 0, fmt.Errorf("patch: %w", err)
	}
	dst, err := archive.ResolvePath(a.opts.OutRoot, id)
	if err != nil {
		return "", 0, 0, fmt.Errorf("patch: %w", err)
	}
	info, err := os.Stat(base)
	if err != nil {
		a.warn(fmt.Sprintf("%s: %v, %d entries skipped", id, archive.ErrNotFound, len(group)))
		return "", 0, len(group), nil
	}
	if filepath.Clean(dst) == filepath.Clean(base) {
		return "", 0, 0, fmt.Errorf("patch: %w: %s", ErrInPlace, dst)
	}
	if out, err := os.Stat(dst); err == nil && os.SameFile(info, out) {
		return "", 0, 0, fmt.Errorf("patch: %w: %s", ErrInPlace, dst)
	}

	f, err := fsutil.CopyFile(dst, base)
	if err != nil {
		return "", 0, 0, fmt.Errorf("patch: %w", err)
	}
	defer f.Abort()

	applied, skipped := 0, 0
	for _, e := range group {
		if err := stage.Checkpoint(ctx); err != nil {
			return "", applied, skipped, err
		}
		ok, err := a.entry(f, info.Size(), e)
		if err != nil {
			return "", applied, skipped, err
		}
		if ok {
			applied++
		} else {
			skipped++
		}
		progress(e)
	}
	if err := f.Commit(); err != nil {
		return "", applied, skipped, fmt.Errorf("patch: %w", err)
	}
	return dst, applied, skipped, nil
}

// entry writes one patch entry. It returns false when the entry is skipped.
func (a *applier) entry(f *fsutil.File, size int64, e Entry) (bool, error) {
	data, ok := a.record(e.Record)
	if !ok {
		a.warn(fmt.Sprintf("%s: record file %s not found, skipped", e, e.Record))
		return false, nil
	}
	original, err := a.originalLength(f, size, e)
	if err != nil {
		a.warn(fmt.Sprintf("%s: %v, skipped", e, err))
		return false, nil
	}
	if int64(len(data)) > original {
		se := &SizeError{Record: e.Record, Original: original, Edited: int64(len(data))}
		a.warn(fmt.Sprintf("%s: %v, skipped", e, se))
		return false, nil
	}
	if int64(e.Offset)+original > size {
		a.warn(fmt.Sprintf("%s: %d bytes at offset run past the archive end, skipped", e, original))
		return false, nil
	}
	if _, err := f.WriteAt(data, int64(e.Offset)); err != nil {
		return false, fmt.Errorf("patch: write %s: %w", e, err)
	}
	if pad := original - int64(len(data)); pad > 0 {
		if _, err := f.WriteAt(make([]byte, pad), int64(e.Offset)+int64(len(data))); err != nil {
			return false, fmt.Errorf("patch: zero-fill %s: %w", e, err)
		}
	}
	return true, nil
}

func (a *applier) record(name string) ([]byte, bool) {
	if data, ok := a.records[name]; ok {
		return data, data != nil
	}
	data, err := os.ReadFile(filepath.Join(a.opts.ReleaseDir, name))
	if err != nil {
		a.records[name] = nil
		return nil, false
	}
	a.records[name] = data
	return data, true
}

// originalLength is the size of the unmodified record when it is on disk,
// else the length field of the RWAV header at the entry offset.
func (a *applier) originalLength(f *fsutil.File, size int64, e Entry) (int64, error) {
	if a.opts.UnmodifiedDir != "" {
		if info, err := os.Stat(filepath.Join(a.opts.UnmodifiedDir, e.Record)); err == nil {
			return info.Size(), nil
		}
	}
	if int64(e.Offset)+12 > size {
		return 0, errors.New("offset past archive end")
	}
	head := make([]byte, 12)
	if _, err := f.ReadAt(head, int64(e.Offset)); err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	if chunk.KindOf(head) != chunk.KindRWAV {
		return 0, errors.New("no RWAV header at offset")
	}
	return int64(binary.BigEndian.Uint32(head[8:])), nil
}

// sameDir reports whether a and b name the same directory, either by path
// or, when both exist, by identity.
func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA == nil && errB == nil && absA == absB {
		return true
	}
	infoA, err := os.Stat(a)
	if err != nil {
		return false
	}
	infoB, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}
