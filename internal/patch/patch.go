// Package patch turns edited records into in-place patches for the vendor
// sound banks and applies them.
//
// Generate finds every physical occurrence of each unmodified record in the
// target archives. Release writes the matching patch file next to copies of
// the edited records, and Apply overwrites those occurrences in copies of the
// archives. An edit is never allowed to grow a record, so archive length and
// every offset outside the patched ranges stay unchanged.
package patch

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// Sentinel errors for patch generation and application.
var (
	// ErrTooBig is wrapped by SizeError.
	ErrTooBig = errors.New("edited record is larger than the original")
	// ErrMalformedPatch is wrapped by FileError.
	ErrMalformedPatch = errors.New("malformed patch line")
	// ErrInPlace is returned when a patched copy would replace its base
	// archive.
	ErrInPlace = errors.New("output would overwrite the base archive")
)

// Entry is one place to overwrite: the record's bytes go to Offset in the
// archive named by Archive, a path relative to the work directory.
type Entry struct {
	Archive string
	Offset  uint32
	Record  string
}

// String renders the entry as a patch file line.
func (e Entry) String() string {
	return fmt.Sprintf("%s|%08X:%s", e.Archive, e.Offset, e.Record)
}

// SizeError reports an edit that would grow its record.
type SizeError struct {
	Record   string
	Original int64
	Edited   int64
}

// Error returns a description naming both sizes.
func (e *SizeError) Error() string {
	return fmt.Sprintf("%s: %s (%d > %d bytes)", e.Record, ErrTooBig, e.Edited, e.Original)
}

// Unwrap returns ErrTooBig.
func (e *SizeError) Unwrap() error {
	return ErrTooBig
}

// Sort orders entries by archive, then offset, then record name.
func Sort(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(a.Archive, b.Archive); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Offset, b.Offset); c != 0 {
			return c
		}
		return cmp.Compare(a.Record, b.Record)
	})
}
