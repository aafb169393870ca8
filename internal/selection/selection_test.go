package selection

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, doc string) []Instruction {
	t.Helper()
	ins, err := Parse(strings.NewReader(doc), "test.txt")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return ins
}

func TestParse_Document(t *testing.T) {
	t.Parallel()

	doc := "# voices\n" +
		"Index_4:\n" +
		"\t1\n" +
		"    3 - 5\n" +
		"\n" +
		"Index_012:\n" +
		"\tall\n"
	ins := mustParse(t, doc)

	want := []Instruction{
		{
			ContainerID: "Index_004",
			Selectors: []Selector{
				{Range: Range{Start: 1, End: 1}},
				{Range: Range{Start: 3, End: 5}},
			},
			Source: "test.txt",
			Line:   2,
		},
		{
			ContainerID: "Index_012",
			Selectors:   []Selector{{All: true}},
			Source:      "test.txt",
			Line:        6,
		},
	}
	if diff := cmp.Diff(want, ins); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_ByteOrderMark(t *testing.T) {
	t.Parallel()

	utf8 := "\ufeffIndex_1:\n\t2\n"
	ins := mustParse(t, utf8)
	if len(ins) != 1 || ins[0].ContainerID != "Index_001" {
		t.Errorf("UTF-8 BOM not tolerated: %+v", ins)
	}

	// UTF-16LE with BOM.
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xFE})
	for _, r := range "Index_3:\n\tAll\n" {
		b.Write([]byte{byte(r), 0})
	}
	ins, err := Parse(&b, "utf16.txt")
	if err != nil {
		t.Fatalf("Parse UTF-16: %v", err)
	}
	if len(ins) != 1 || ins[0].ContainerID != "Index_003" || !ins[0].Selectors[0].All {
		t.Errorf("UTF-16 document misparsed: %+v", ins)
	}
}

func TestParse_ListBullets(t *testing.T) {
	t.Parallel()

	ins := mustParse(t, "Index_004:\n    - 1\n    - 3 - 7\nIndex_005:\n    - All\n")
	sel := Resolve(ins)
	if diff := cmp.Diff([]string{"1", "3 - 7"}, sel.Compact("Index_004")); diff != "" {
		t.Errorf("Compact mismatch (-want +got):\n%s", diff)
	}
	if !sel.IsAll("Index_005") {
		t.Error("bulleted All not recognised")
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		line int
	}{
		{"selector before header", "5\n", 1},
		{"bad header", "Sound_4:\n\t1\n", 1},
		{"not a number", "Index_1:\n\tfive\n", 2},
		{"reversed range", "Index_1:\n\n\t5 - 3\n", 3},
		{"negative", "Index_1:\n\t-3\n", 2},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(strings.NewReader(tt.doc), "doc.txt")
			if !errors.Is(err, ErrSyntax) {
				t.Fatalf("expected ErrSyntax, got %v", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Line != tt.line || pe.Source != "doc.txt" {
				t.Errorf("error at %s:%d, want doc.txt:%d", pe.Source, pe.Line, tt.line)
			}
		})
	}
}

func TestResolve_AllAbsorbs(t *testing.T) {
	t.Parallel()

	a := mustParse(t, "Index_1:\n\t1\n\t3 - 5\n")
	b := mustParse(t, "Index_1:\n\tAll\n")

	for _, order := range [][][]Instruction{{a, b}, {b, a}} {
		sel := Resolve(order...)
		if !sel.IsAll("Index_1") {
			t.Errorf("expected All, got %v", sel.Compact("Index_1"))
		}
		if diff := cmp.Diff([]string{"All"}, sel.Compact("Index_001")); diff != "" {
			t.Errorf("Compact mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestResolve_UnionCompacts(t *testing.T) {
	t.Parallel()

	a := mustParse(t, "Index_7:\n\t1\n\t2\n\t3\n")
	b := mustParse(t, "Index_7:\n\t5\n\t6\n")

	sel := Resolve(a, b)
	if diff := cmp.Diff([]string{"1 - 3", "5 - 6"}, sel.Compact("Index_007")); diff != "" {
		t.Errorf("Compact mismatch (-want +got):\n%s", diff)
	}

	// Overlapping and adjacent ranges coalesce.
	c := mustParse(t, "Index_7:\n\t4\n\t2 - 9\n")
	sel = Resolve(a, b, c)
	if diff := cmp.Diff([]string{"1 - 9"}, sel.Compact("Index_007")); diff != "" {
		t.Errorf("Compact mismatch (-want +got):\n%s", diff)
	}
}

func TestSelection_IDsNaturalOrder(t *testing.T) {
	t.Parallel()

	sel := Resolve(mustParse(t, "Index_10:\n\t1\nIndex_2:\n\t1\nIndex_1000:\n\tAll\nIndex_3:\n"))
	want := []string{"Index_002", "Index_010", "Index_1000"}
	if diff := cmp.Diff(want, sel.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
}

func TestSelection_Positions(t *testing.T) {
	t.Parallel()

	sel := Resolve(mustParse(t, "Index_1:\n\t0\n\t2 - 3\n\t5 - 8\nIndex_2:\n\tAll\n"))

	pos, skipped := sel.Positions("Index_1", 6)
	if diff := cmp.Diff([]int{1, 2, 4, 5}, pos); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Range{{0, 0}, {7, 8}}, skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}

	pos, skipped = sel.Positions("Index_2", 3)
	if diff := cmp.Diff([]int{0, 1, 2}, pos); diff != "" || skipped != nil {
		t.Errorf("All positions mismatch (-want +got):\n%s skipped=%v", diff, skipped)
	}

	if pos, _ := sel.Positions("Index_9", 3); pos != nil {
		t.Errorf("unknown container should select nothing, got %v", pos)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	t.Parallel()

	sel := Resolve(mustParse(t, "Index_2:\n\t4\n\t1 - 2\nIndex_1:\n\tAll\n"))
	want := "Index_001:\n\tAll\nIndex_002:\n\t1 - 2\n\t4\n"
	if got := sel.String(); got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}

	again := Resolve(mustParse(t, sel.String()))
	if again.String() != want {
		t.Errorf("formatted document does not parse back to itself:\n%s", again.String())
	}
}

func TestCompactRoundTrip(t *testing.T) {
	t.Parallel()

	sel := Resolve(mustParse(t, "Index_5:\n\t1 - 3\n\t9\nIndex_6:\n\tAll\n"))
	back, err := FromCompact(sel.ToCompact())
	if err != nil {
		t.Fatalf("FromCompact: %v", err)
	}
	if back.String() != sel.String() {
		t.Errorf("round trip changed selection:\n%s\nvs\n%s", back.String(), sel.String())
	}

	if _, err := FromCompact(map[string][]string{"Index_1": {"x"}}); !errors.Is(err, ErrSyntax) {
		t.Errorf("expected ErrSyntax, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "Voices.txt")
	if err := os.WriteFile(path, []byte("Index_8:\n\t2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ins, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(ins) != 1 || ins[0].Source != path {
		t.Errorf("unexpected instructions %+v", ins)
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
