package selection

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/papapumpkin/wzpatch/internal/record"
)

type entry struct {
	all    bool
	ranges []Range // sorted, disjoint, non-adjacent
}

// Selection is the merged choice of records per container. The zero value
// is empty and ready to use.
type Selection struct {
	entries map[string]*entry
}

// Resolve merges instructions by union. All absorbs any other selector for
// the same container, regardless of which document it came from.
func Resolve(instructions ...[]Instruction) Selection {
	var s Selection
	for _, doc := range instructions {
		for _, in := range doc {
			s.Add(in)
		}
	}
	return s
}

// Add merges one instruction into s.
func (s *Selection) Add(in Instruction) {
	if s.entries == nil {
		s.entries = make(map[string]*entry)
	}
	id := in.ContainerID
	if n, err := record.NormalizeContainerID(id); err == nil {
		id = n
	}
	e := s.entries[id]
	if e == nil {
		e = &entry{}
		s.entries[id] = e
	}
	for _, sel := range in.Selectors {
		if sel.All {
			e.all = true
			e.ranges = nil
			continue
		}
		if !e.all {
			e.ranges = union(e.ranges, sel.Range)
		}
	}
}

// Merge returns the union of s and o.
func (s Selection) Merge(o Selection) Selection {
	var out Selection
	for _, src := range []Selection{s, o} {
		for id, e := range src.entries {
			in := Instruction{ContainerID: id}
			if e.all {
				in.Selectors = []Selector{{All: true}}
			}
			for _, r := range e.ranges {
				in.Selectors = append(in.Selectors, Selector{Range: r})
			}
			out.Add(in)
		}
	}
	return out
}

// IDs returns the containers that select at least one record, in natural
// order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s.entries))
	for id, e := range s.entries {
		if e.all || len(e.ranges) > 0 {
			ids = append(ids, id)
		}
	}
	record.SortNatural(ids)
	return ids
}

// Len returns the number of containers in IDs.
func (s Selection) Len() int {
	return len(s.IDs())
}

// IsAll reports whether every record of id is selected.
func (s Selection) IsAll(id string) bool {
	e := s.lookup(id)
	return e != nil && e.all
}

// Ranges returns the compacted 1-based ranges selected for id. It is nil
// for an All selection.
func (s Selection) Ranges(id string) []Range {
	e := s.lookup(id)
	if e == nil || e.all {
		return nil
	}
	return slices.Clone(e.ranges)
}

// Compact renders the selection for id as minimal closed ranges, e.g.
// ["1 - 3", "5"], or ["All"].
func (s Selection) Compact(id string) []string {
	e := s.lookup(id)
	if e == nil {
		return nil
	}
	if e.all {
		return []string{allKeyword}
	}
	out := make([]string, len(e.ranges))
	for i, r := range e.ranges {
		out[i] = r.String()
	}
	return out
}

// Positions converts the 1-based selection for id into 0-based record
// positions within a container holding count records. Selector values of 0
// or above count cannot name a record and are returned as skipped.
func (s Selection) Positions(id string, count int) (positions []int, skipped []Range) {
	e := s.lookup(id)
	if e == nil {
		return nil, nil
	}
	if e.all {
		positions = make([]int, count)
		for i := range positions {
			positions[i] = i
		}
		return positions, nil
	}
	for _, r := range e.ranges {
		lo, hi := max(r.Start, 1), min(r.End, count)
		if r.Start < lo {
			skipped = append(skipped, Range{Start: r.Start, End: min(r.End, lo-1)})
		}
		for v := lo; v <= hi; v++ {
			positions = append(positions, v-1)
		}
		if r.End > count {
			skipped = append(skipped, Range{Start: max(r.Start, count+1), End: r.End})
		}
	}
	return positions, skipped
}

// Format writes s as a canonical instruction document.
func Format(w io.Writer, s Selection) error {
	for _, id := range s.IDs() {
		if _, err := fmt.Fprintf(w, "%s:\n", id); err != nil {
			return err
		}
		for _, line := range s.Compact(id) {
			if _, err := fmt.Fprintf(w, "\t%s\n", line); err != nil {
				return err
			}
		}
	}
	return nil
}

// String returns the canonical document form of s.
func (s Selection) String() string {
	var b strings.Builder
	_ = Format(&b, s)
	return b.String()
}

// FromCompact rebuilds a Selection from the Compact form of each container,
// as persisted in project files.
func FromCompact(m map[string][]string) (Selection, error) {
	var s Selection
	for id, lines := range m {
		norm, err := record.NormalizeContainerID(id)
		if err != nil {
			return Selection{}, fmt.Errorf("selection: %w", err)
		}
		in := Instruction{ContainerID: norm}
		for _, l := range lines {
			sel, err := ParseSelector(l)
			if err != nil {
				return Selection{}, fmt.Errorf("selection: %s: %w", norm, err)
			}
			in.Selectors = append(in.Selectors, sel)
		}
		s.Add(in)
	}
	return s, nil
}

// ToCompact is the inverse of FromCompact.
func (s Selection) ToCompact() map[string][]string {
	out := make(map[string][]string)
	for _, id := range s.IDs() {
		out[id] = s.Compact(id)
	}
	return out
}

func (s Selection) lookup(id string) *entry {
	if s.entries == nil {
		return nil
	}
	if n, err := record.NormalizeContainerID(id); err == nil {
		id = n
	}
	return s.entries[id]
}

// union inserts r into a sorted set of disjoint ranges, coalescing
// overlapping and adjacent neighbours.
func union(rs []Range, r Range) []Range {
	rs = append(rs, r)
	slices.SortFunc(rs, func(a, b Range) int { return cmp.Compare(a.Start, b.Start) })
	out := rs[:1]
	for _, next := range rs[1:] {
		last := &out[len(out)-1]
		if next.Start <= last.End+1 {
			last.End = max(last.End, next.End)
			continue
		}
		out = append(out, next)
	}
	return out
}
