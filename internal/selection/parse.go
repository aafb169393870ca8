// Package selection parses instruction documents that pick audio records out
// of indexed containers, and merges any number of them into one canonical
// selection.
//
// A document is line oriented:
//
//	# comment
//	Index_4:
//		1
//		3 - 5
//	Index_12:
//		- All
//
// Selector values are 1-based. They become 0-based record positions only in
// Selection.Positions, which is the single place the conversion happens.
package selection

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/papapumpkin/wzpatch/internal/record"
)

// ErrSyntax is wrapped by every ParseError.
var ErrSyntax = errors.New("invalid instruction")

// allKeyword selects every record of a container.
const allKeyword = "All"

// Range is a closed interval of 1-based selector values.
type Range struct {
	Start, End int
}

// String renders the range the way documents write it.
func (r Range) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d - %d", r.Start, r.End)
}

// Selector is a single instruction line: either All or a closed range.
// A single index N is the range N - N.
type Selector struct {
	All   bool
	Range Range
}

// Instruction is one container header with the selectors listed under it.
type Instruction struct {
	ContainerID string
	Selectors   []Selector
	Source      string
	Line        int
}

// ParseError reports a malformed line with its source location.
type ParseError struct {
	Source string
	Line   int
	Text   string
	Err    error
}

// Error returns the location-prefixed message.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %q: %v", e.Source, e.Line, e.Text, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads an instruction document. A leading byte order mark is
// honoured, so documents saved as UTF-16 by desktop editors parse too.
// source names the document in errors.
func Parse(r io.Reader, source string) ([]Instruction, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	sc := bufio.NewScanner(transform.NewReader(r, dec))

	var (
		out     []Instruction
		current *Instruction
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		raw := sc.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fail := func(err error) error {
			return &ParseError{Source: source, Line: lineNo, Text: raw, Err: err}
		}

		if head, ok := strings.CutSuffix(line, ":"); ok {
			id, err := record.NormalizeContainerID(head)
			if err != nil {
				return nil, fail(fmt.Errorf("%w: header is not Index_<n>", ErrSyntax))
			}
			out = append(out, Instruction{ContainerID: id, Source: source, Line: lineNo})
			current = &out[len(out)-1]
			continue
		}
		if current == nil {
			return nil, fail(fmt.Errorf("%w: selector before any Index_<n>: header", ErrSyntax))
		}
		// List bullets ("- 3 - 7") from YAML-style documents are accepted.
		if rest, ok := strings.CutPrefix(line, "- "); ok {
			line = rest
		}
		sel, err := ParseSelector(line)
		if err != nil {
			return nil, fail(err)
		}
		current.Selectors = append(current.Selectors, sel)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("selection: read %s: %w", source, err)
	}
	return out, nil
}

// ParseFile parses the instruction document at path.
func ParseFile(path string) ([]Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// ParseSelector parses one selector: "N", "N - M" or "All".
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, allKeyword) {
		return Selector{All: true}, nil
	}
	if a, b, ok := strings.Cut(s, "-"); ok {
		start, err := value(a)
		if err != nil {
			return Selector{}, err
		}
		end, err := value(b)
		if err != nil {
			return Selector{}, err
		}
		if end < start {
			return Selector{}, fmt.Errorf("%w: range end %d before start %d", ErrSyntax, end, start)
		}
		return Selector{Range: Range{Start: start, End: end}}, nil
	}
	n, err := value(s)
	if err != nil {
		return Selector{}, err
	}
	return Selector{Range: Range{Start: n, End: n}}, nil
}

func value(s string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q is not a record number", ErrSyntax, s)
	}
	return n, nil
}
