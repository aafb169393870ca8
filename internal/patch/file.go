package patch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/papapumpkin/wzpatch/internal/fsutil"
)

// Ext is the patch file extension.
const Ext = ".patch"

// FileError reports a malformed patch file line.
type FileError struct {
	Source string
	Line   int
	Text   string
	Reason string
}

// Error returns the location-prefixed message.
func (e *FileError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %q: %s", e.Source, e.Line, ErrMalformedPatch, e.Text, e.Reason)
}

// Unwrap returns ErrMalformedPatch.
func (e *FileError) Unwrap() error {
	return ErrMalformedPatch
}

// Format renders entries as patch file text in the given order.
func Format(entries []Entry) []byte {
	var b bytes.Buffer
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// WriteFile sorts entries and atomically writes them to path.
func WriteFile(path string, entries []Entry) error {
	sorted := append([]Entry(nil), entries...)
	Sort(sorted)
	if err := fsutil.WriteFile(path, Format(sorted)); err != nil {
		return fmt.Errorf("patch: write %s: %w", path, err)
	}
	return nil
}

// Parse reads patch file lines of the form archive|OFFSET:record. Lines
// without an archive, written before side archives existed, target
// primary. Blank lines are skipped; any other malformed line fails the
// whole file, since a partial patch would leave archives inconsistent.
func Parse(r io.Reader, source, primary string) ([]Entry, error) {
	var out []Entry
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		fail := func(reason string) error {
			return &FileError{Source: source, Line: lineNo, Text: raw, Reason: reason}
		}

		target := primary
		if a, rest, ok := strings.Cut(line, "|"); ok {
			target, line = strings.TrimSpace(a), rest
			if target == "" {
				return nil, fail("empty archive")
			}
		}
		off, name, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fail("missing ':'")
		}
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, `/\:`) || name == "." || name == ".." {
			return nil, fail("record is not a plain filename")
		}
		v, err := strconv.ParseUint(strings.TrimSpace(off), 16, 32)
		if err != nil {
			return nil, fail("offset is not 32-bit hex")
		}
		out = append(out, Entry{Archive: target, Offset: uint32(v), Record: name})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("patch: read %s: %w", source, err)
	}
	return out, nil
}

// ReadFile parses the patch file at path.
func ReadFile(path, primary string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("patch: %w", err)
	}
	defer f.Close()
	return Parse(f, path, primary)
}
