// Package extract turns a vendor sound bank into editable files. Index splits
// the archive into numbered containers; Extract pulls the selected RWAV
// records out of those containers under their canonical names.
//
// Both stages clear their own stale output first, so a re-run reflects only
// the current archive and selection, and both finish by deleting
// byte-identical copies.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/wzpatch/internal/chunk"
	"github.com/papapumpkin/wzpatch/internal/config"
	"github.com/papapumpkin/wzpatch/internal/fsutil"
	"github.com/papapumpkin/wzpatch/internal/record"
	"github.com/papapumpkin/wzpatch/internal/stage"
	"github.com/papapumpkin/wzpatch/internal/ui"
)

// ErrMode indicates an index mode other than rwar or rwsd.
var ErrMode = errors.New("unknown index mode")

// Container is one indexed container written by Index.
type Container struct {
	Name     string
	Number   int
	Offset   uint32
	Length   uint32
	Records  int
	Repaired bool
}

// IndexResult summarises an Index run.
type IndexResult struct {
	Containers []Container
	// Skipped counts chunks that held no RWAV records.
	Skipped    int
	Duplicates []Duplicate
	Warnings   []string
}

// Index scans data for RWAR chunks (mode rwar) or RWSD chunks (mode rwsd)
// and writes every chunk holding records to outDir as
// Index_<n>_<count>.brwsd. Numbers run from 0 and count only written chunks.
// Sequenced RWSD chunks are repaired before they are written.
//
// A corrupt chunk stops the scan. The containers written before it are kept,
// deduplicated and returned together with the *chunk.CorruptChunkError.
func Index(ctx context.Context, data []byte, outDir, mode string, sink ui.UI) (IndexResult, error) {
	sink = ui.Or(sink)
	var kind chunk.Kind
	switch mode {
	case config.IndexModeRWAR:
		kind = chunk.KindRWAR
	case config.IndexModeRWSD:
		kind = chunk.KindRWSD
	default:
		return IndexResult{}, fmt.Errorf("extract: %w: %q", ErrMode, mode)
	}
	if _, err := clearStale(outDir, isIndexFile); err != nil {
		return IndexResult{}, err
	}

	var res IndexResult
	var written []string
	// Progress is reported in bytes of the archive.
	sink.StageStart(stage.Index, len(data))
	s := chunk.NewScanner(data, 0, kind)
	for s.Next() {
		if err := stage.Checkpoint(ctx); err != nil {
			return res, err
		}
		c := s.Chunk()
		if !c.Interesting() {
			res.Skipped++
			continue
		}
		body := c.Bytes(data)
		repaired := false
		if c.Sequenced {
			body, repaired = chunk.RepairSequenced(body)
		}
		n := len(res.Containers)
		count := chunk.Count(body)
		name := record.ContainerName(n, count)
		path := filepath.Join(outDir, name)
		if err := fsutil.WriteFile(path, body); err != nil {
			return res, fmt.Errorf("extract: write %s: %w", name, err)
		}
		written = append(written, path)
		res.Containers = append(res.Containers, Container{
			Name:     name,
			Number:   n,
			Offset:   c.Offset,
			Length:   uint32(len(body)),
			Records:  count,
			Repaired: repaired,
		})
		sink.StageProgress(stage.Index, int(c.End()), len(data), name)
	}

	scanErr := s.Err()
	var ce *chunk.CorruptChunkError
	if scanErr != nil {
		if !errors.As(scanErr, &ce) {
			return res, fmt.Errorf("extract: scan: %w", scanErr)
		}
		msg := fmt.Sprintf("scan stopped: %v", scanErr)
		res.Warnings = append(res.Warnings, msg)
		sink.Warn(msg)
	}

	dups, err := Dedupe(ctx, written)
	res.Duplicates = dups
	if err != nil {
		return res, err
	}
	res.Containers = withoutDuplicates(res.Containers, dups, func(c Container) string { return c.Name })

	sink.StageDone(stage.Index, fmt.Sprintf("%d container(s), %d without records, %d duplicate(s)",
		len(res.Containers), res.Skipped, len(res.Duplicates)))
	if ce != nil {
		return res, ce
	}
	return res, nil
}

func isIndexFile(name string) bool {
	return strings.HasPrefix(name, "Index_") && hasExt(name, record.ContainerExt)
}

func withoutDuplicates[T any](items []T, dups []Duplicate, name func(T) string) []T {
	if len(dups) == 0 {
		return items
	}
	gone := make(map[string]bool, len(dups))
	for _, d := range dups {
		gone[d.Name] = true
	}
	out := items[:0]
	for _, it := range items {
		if !gone[name(it)] {
			out = append(out, it)
		}
	}
	return out
}
