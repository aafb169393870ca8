package patch

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/papapumpkin/wzpatch/internal/archive"
	"github.com/papapumpkin/wzpatch/internal/stage"
	"github.com/papapumpkin/wzpatch/internal/ui"
)

// Result is the outcome of Generate.
type Result struct {
	// Entries are sorted by archive and offset.
	Entries []Entry
	// TooBig lists edits that would grow their record. They get no entries.
	TooBig []*SizeError
	// Unchanged lists edited files identical to the original.
	Unchanged []string
	// Untouched lists records with no edited file.
	Untouched []string
	// NotFound lists eligible records that occur in no archive.
	NotFound []string
	Warnings []string
}

// Records returns the distinct record names referenced by the entries.
func (r Result) Records() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range r.Entries {
		if !seen[e.Record] {
			seen[e.Record] = true
			out = append(out, e.Record)
		}
	}
	return out
}

// Generate produces patch entries for every record of unmodDir, in natural
// order, whose edited copy in modDir differs from it without being larger.
// Every occurrence of the original bytes in every archive becomes one
// entry; occurrences may overlap. Records named in skip are left out.
func Generate(ctx context.Context, archives []*archive.Archive, unmodDir, modDir string, skip []string, sink ui.UI) (Result, error) {
	sink = ui.Or(sink)
	names, err := ListRecords(unmodDir)
	if err != nil {
		return Result{}, err
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	var res Result
	sink.StageStart(stage.Patch, len(names))
	for i, name := range names {
		if err := stage.Checkpoint(ctx); err != nil {
			return res, err
		}
		sink.StageProgress(stage.Patch, i+1, len(names), name)
		if skipped[name] {
			continue
		}
		c, err := compare(filepath.Join(unmodDir, name), filepath.Join(modDir, name))
		if err != nil {
			return res, err
		}
		switch c.status {
		case statusUntouched:
			res.Untouched = append(res.Untouched, name)
			continue
		case statusTooBig:
			se := &SizeError{Record: name, Original: c.original, Edited: c.edited}
			res.TooBig = append(res.TooBig, se)
			sink.Warn(se.Error())
			continue
		case statusUnchanged:
			res.Unchanged = append(res.Unchanged, name)
			continue
		case statusEdited:
		default:
			continue
		}
		if len(c.unmod) == 0 {
			msg := fmt.Sprintf("%s: empty record, skipped", name)
			res.Warnings = append(res.Warnings, msg)
			sink.Warn(msg)
			continue
		}

		found := 0
		for _, a := range archives {
			for _, off := range Occurrences(a.Data, c.unmod) {
				res.Entries = append(res.Entries, Entry{Archive: a.ID, Offset: off, Record: name})
				found++
			}
		}
		if found == 0 {
			res.NotFound = append(res.NotFound, name)
			msg := fmt.Sprintf("%s: original bytes not found in any archive", name)
			res.Warnings = append(res.Warnings, msg)
			sink.Warn(msg)
		}
	}
	Sort(res.Entries)
	sink.StageDone(stage.Patch, fmt.Sprintf("%d entries for %d record(s), %d too big",
		len(res.Entries), len(res.Records()), len(res.TooBig)))
	return res, nil
}

// Occurrences returns the offset of every match of needle in haystack,
// including overlapping ones.
func Occurrences(haystack, needle []byte) []uint32 {
	if len(needle) == 0 {
		return nil
	}
	var out []uint32
	for start := 0; start <= len(haystack)-len(needle); {
		i := bytes.Index(haystack[start:], needle)
		if i < 0 {
			break
		}
		out = append(out, uint32(start+i))
		start += i + 1
	}
	return out
}
