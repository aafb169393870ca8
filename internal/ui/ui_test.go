package ui

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestPrinter_StageLifecycle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWriter(&buf)

	p.StageStart("extract", 3)
	p.StageProgress("extract", 1, 3, "Audio_004_000.rwav")
	p.StageProgress("extract", 3, 3, "Audio_004_002.rwav")
	p.StageDone("extract", "3 record(s)")

	output := buf.String()
	checks := []struct {
		name   string
		substr string
	}{
		{"stage header", "── extract ──"},
		{"item count", "3 item(s)"},
		{"first item", "Audio_004_000.rwav"},
		{"completion percent", "100%"},
		{"summary", "3 record(s)"},
	}
	for _, c := range checks {
		if !strings.Contains(output, c.substr) {
			t.Errorf("expected output to contain %s (%q), got:\n%s", c.name, c.substr, output)
		}
	}
}

func TestPrinter_ThrottlesProgress(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWriter(&buf)

	p.StageStart("patch", 1000)
	for i := 1; i <= 1000; i++ {
		p.StageProgress("patch", i, 1000, "item")
	}

	lines := strings.Count(buf.String(), "item\n")
	if lines > 11 {
		t.Errorf("printed %d progress lines, want at most 11", lines)
	}
	if !strings.Contains(buf.String(), "1000/1000") {
		t.Errorf("final progress line missing:\n%s", buf.String())
	}
}

func TestPrinter_ListSkipsEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewWriter(&buf)
	p.List("too big", nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty list, got %q", buf.String())
	}

	p.List("too big", []string{"Audio_001_000.rwav"})
	if !strings.Contains(buf.String(), "too big") || !strings.Contains(buf.String(), "(1)") {
		t.Errorf("unexpected list output: %q", buf.String())
	}
}

func TestLogger_WritesStructuredRecords(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	l.StageStart("apply", 2)
	l.Warn("record missing")
	l.StageDone("apply", "2 patched")

	out := buf.String()
	for _, want := range []string{"stage=apply", "total=2", "record missing", "summary=\"2 patched\""} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestOr(t *testing.T) {
	t.Parallel()

	if _, ok := Or(nil).(Nop); !ok {
		t.Error("Or(nil) should return Nop")
	}
	p := New()
	if Or(p) != UI(p) {
		t.Error("Or(p) should return p unchanged")
	}
}

func TestSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1536, "1.5 KiB"},
		{-1024, "-1.0 KiB"},
	}
	for _, tt := range tests {
		if got := Size(tt.in); got != tt.want {
			t.Errorf("Size(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
