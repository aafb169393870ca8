package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papapumpkin/wzpatch/internal/chunk"
	"github.com/papapumpkin/wzpatch/internal/fsutil"
	"github.com/papapumpkin/wzpatch/internal/record"
	"github.com/papapumpkin/wzpatch/internal/selection"
	"github.com/papapumpkin/wzpatch/internal/stage"
	"github.com/papapumpkin/wzpatch/internal/ui"
)

// Result summarises an Extract run.
type Result struct {
	// Records are the files left in the output directory, in extraction
	// order.
	Records    []record.AudioRecord
	Duplicates []Duplicate
	// Missing lists selected container ids with no indexed container.
	Missing  []string
	Warnings []string
}

// slot is one RWAV signature position inside a container. A corrupt slot
// keeps its position so later records keep their canonical names.
type slot struct {
	chunk   chunk.Chunk
	corrupt bool
}

// Extract writes the records chosen by sel from the indexed containers in
// indexDir to outDir. Stale .rwav files in outDir are removed first and
// byte-identical records are removed last, keeping the first name in natural
// order.
//
// A selected container with no file in indexDir, a corrupt record, or a
// selector past the end of a container is a warning; extraction carries on
// with everything else.
func Extract(ctx context.Context, indexDir string, sel selection.Selection, outDir string, sink ui.UI) (Result, error) {
	sink = ui.Or(sink)
	files, err := indexFiles(indexDir)
	if err != nil {
		return Result{}, err
	}
	if _, err := clearStale(outDir, func(n string) bool { return hasExt(n, record.RecordExt) }); err != nil {
		return Result{}, err
	}

	var res Result
	warn := func(msg string) {
		res.Warnings = append(res.Warnings, msg)
		sink.Warn(msg)
	}

	ids := sel.IDs()
	sink.StageStart(stage.Extract, len(ids))
	var written []string
	for i, id := range ids {
		if err := stage.Checkpoint(ctx); err != nil {
			return res, err
		}
		n, err := record.ContainerNumber(id)
		if err != nil {
			return res, fmt.Errorf("extract: %w", err)
		}
		name, ok := files[n]
		if !ok {
			res.Missing = append(res.Missing, id)
			warn(fmt.Sprintf("%s: no indexed container in %s, skipped", id, indexDir))
			continue
		}
		paths, recs, err := extractContainer(ctx, filepath.Join(indexDir, name), id, n, sel, outDir, warn)
		written = append(written, paths...)
		res.Records = append(res.Records, recs...)
		if err != nil {
			return res, err
		}
		sink.StageProgress(stage.Extract, i+1, len(ids), id)
	}

	dups, err := Dedupe(ctx, written)
	res.Duplicates = dups
	if err != nil {
		return res, err
	}
	res.Records = withoutDuplicates(res.Records, dups, record.AudioRecord.Name)
	sink.StageDone(stage.Extract, fmt.Sprintf("%d record(s), %d duplicate(s) removed, %d container(s) missing",
		len(res.Records), len(res.Duplicates), len(res.Missing)))
	return res, nil
}

func extractContainer(ctx context.Context, path, id string, n int, sel selection.Selection, outDir string, warn func(string)) ([]string, []record.AudioRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("extract: read %s: %w", path, err)
	}
	name := filepath.Base(path)
	slots, err := scanSlots(data, name, warn)
	if err != nil {
		return nil, nil, err
	}
	if _, want, err := record.ParseContainerName(name); err == nil && want != len(slots) {
		warn(fmt.Sprintf("%s: name promises %d record(s), found %d", name, want, len(slots)))
	}

	positions, skipped := sel.Positions(id, len(slots))
	for _, r := range skipped {
		warn(fmt.Sprintf("%s: selector %s is outside 1 - %d, skipped", id, r, len(slots)))
	}

	var (
		paths []string
		recs  []record.AudioRecord
	)
	for _, pos := range positions {
		if err := stage.Checkpoint(ctx); err != nil {
			return paths, recs, err
		}
		sl := slots[pos]
		if sl.corrupt {
			continue
		}
		rec := record.AudioRecord{
			ContainerID: record.ContainerID(n),
			Sequence:    uint32(pos),
			Offset:      sl.chunk.Offset,
			Length:      sl.chunk.Length,
		}
		out := filepath.Join(outDir, rec.Name())
		if err := fsutil.WriteFile(out, sl.chunk.Bytes(data)); err != nil {
			return paths, recs, fmt.Errorf("extract: write %s: %w", rec.Name(), err)
		}
		paths = append(paths, out)
		recs = append(recs, rec)
	}
	return paths, recs, nil
}

// scanSlots finds every RWAV in data. A record whose length runs past the
// end is reported and the search resumes just after its signature.
func scanSlots(data []byte, name string, warn func(string)) ([]slot, error) {
	var out []slot
	s := chunk.NewScanner(data, 0, chunk.KindRWAV)
	for {
		if s.Next() {
			out = append(out, slot{chunk: s.Chunk()})
			continue
		}
		err := s.Err()
		if err == nil {
			return out, nil
		}
		var ce *chunk.CorruptChunkError
		if !errors.As(err, &ce) {
			return out, fmt.Errorf("extract: scan %s: %w", name, err)
		}
		warn(fmt.Sprintf("%s: record %d skipped: %v", name, len(out)+1, err))
		out = append(out, slot{chunk: chunk.Chunk{Kind: chunk.KindRWAV, Offset: ce.Offset}, corrupt: true})
		s.Resume()
	}
}

// indexFiles maps container numbers to indexed container filenames. When
// two files claim the same number the first in natural order wins.
func indexFiles(dir string) (map[int]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("extract: list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	record.SortNatural(names)
	out := make(map[int]string, len(names))
	for _, name := range names {
		n, _, err := record.ParseContainerName(name)
		if err != nil {
			continue
		}
		if _, dup := out[n]; !dup {
			out[n] = name
		}
	}
	return out, nil
}
