package patch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/wzpatch/internal/stage"
)

// release generates and releases the fixture's edits into a release dir.
func (f fixture) release(t *testing.T) (string, Released) {
	t.Helper()
	res, err := Generate(context.Background(), f.archives(t), f.unmod, f.mod, nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	dir := filepath.Join(f.root, "Releases", "demo", "PatchInstructions")
	rel, err := Release(dir, "demo", res, f.mod)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	return dir, rel
}

func TestRelease_OnlyEligibleRecords(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	writeFiles(t, f.unmod, map[string][]byte{"Audio_000_002.rwav": rwav(32, 0xE5)})
	writeFiles(t, f.mod, map[string][]byte{"Audio_000_002.rwav": rwav(64, 0xE6)})
	dir := filepath.Join(f.root, "rel")
	writeFiles(t, dir, map[string][]byte{"old.patch": []byte("stale"), "Audio_999_000.rwav": []byte("stale")})

	_, rel := f.release(t)
	if diff := cmp.Diff([]string{"Audio_000_000.rwav", "Audio_000_001.rwav"}, rel.Copied); diff != "" {
		t.Errorf("Copied mismatch (-want +got):\n%s", diff)
	}
	entries, err := ReadFile(rel.PatchFile, primaryID)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("got %d entries, want 4: %+v", len(entries), entries)
	}
	for _, e := range entries {
		if e.Record == "Audio_000_002.rwav" {
			t.Error("oversized record listed in patch file")
		}
	}

	// Releasing into a dirty directory drops stale files.
	res, err := Generate(context.Background(), f.archives(t), f.unmod, f.mod, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Release(dir, "demo", res, f.mod); err != nil {
		t.Fatalf("Release: %v", err)
	}
	for _, stale := range []string{"old.patch", "Audio_999_000.rwav"} {
		if _, err := os.Stat(filepath.Join(dir, stale)); !os.IsNotExist(err) {
			t.Errorf("%s should have been removed", stale)
		}
	}
	found, err := FindPatchFile(dir)
	if err != nil || filepath.Base(found) != "demo.patch" {
		t.Errorf("FindPatchFile = %q, %v", found, err)
	}
}

func TestApply_OverwritesAndZeroFills(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	relDir, rel := f.release(t)
	out := filepath.Join(f.root, "Out")
	applied, err := Apply(context.Background(), ApplyOptions{
		BaseRoot:      f.root,
		OutRoot:       out,
		ReleaseDir:    relDir,
		UnmodifiedDir: f.unmod,
	}, rel.Entries, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.Entries != 4 || applied.Skipped != 0 || len(applied.Outputs) != 2 {
		t.Errorf("unexpected result %+v", applied)
	}

	got, err := os.ReadFile(filepath.Join(out, filepath.FromSlash(primaryID)))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(f.primary) {
		t.Fatalf("length changed: %d, want %d", len(got), len(f.primary))
	}
	want := bytes.Join([][]byte{
		junk(16),
		rwav(100, 0xC3),
		rwav(40, 0xD4), make([]byte, 10),
		rwav(100, 0xC3),
		junk(16),
	}, nil)
	if !bytes.Equal(got, want) {
		t.Errorf("patched primary:\n got %x\nwant %x", got, want)
	}
	side, _ := os.ReadFile(filepath.Join(out, filepath.FromSlash(sideID)))
	wantSide := bytes.Join([][]byte{junk(40), rwav(40, 0xD4), make([]byte, 10), junk(8)}, nil)
	if !bytes.Equal(side, wantSide) {
		t.Errorf("patched side:\n got %x\nwant %x", side, wantSide)
	}

	base, _ := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(primaryID)))
	if !bytes.Equal(base, f.primary) {
		t.Error("base archive was modified")
	}
	if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(primaryID)) + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	relDir, rel := f.release(t)
	entries, err := ReadFile(rel.PatchFile, primaryID)
	if err != nil {
		t.Fatal(err)
	}
	var outputs [2][]byte
	for i := range outputs {
		out := filepath.Join(f.root, "Out", string(rune('a'+i)))
		// No unmodified dir: lengths come from the RWAV headers.
		if _, err := Apply(context.Background(), ApplyOptions{BaseRoot: f.root, OutRoot: out, ReleaseDir: relDir}, entries, nil); err != nil {
			t.Fatalf("Apply #%d: %v", i, err)
		}
		outputs[i], _ = os.ReadFile(filepath.Join(out, filepath.FromSlash(primaryID)))
	}
	if len(outputs[0]) == 0 || !bytes.Equal(outputs[0], outputs[1]) {
		t.Error("two applications of the same patch differ")
	}
}

func TestApply_SkipsWithWarnings(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	relDir, rel := f.release(t)
	entries := append([]Entry{
		{Archive: primaryID, Offset: 0, Record: "Audio_404_000.rwav"},
		{Archive: "ProgramData/missing.brsar", Offset: 0, Record: "Audio_000_001.rwav"},
	}, rel.Entries...)

	applied, err := Apply(context.Background(), ApplyOptions{BaseRoot: f.root, OutRoot: filepath.Join(f.root, "Out"), ReleaseDir: relDir}, entries, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.Entries != 4 || applied.Skipped != 2 || len(applied.Warnings) != 2 {
		t.Errorf("unexpected result %+v", applied)
	}
}

func TestApply_RejectsGrowth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	relDir := filepath.Join(f.root, "rel")
	writeFiles(t, relDir, map[string][]byte{"big.rwav": rwav(60, 0xFF)})
	applied, err := Apply(context.Background(), ApplyOptions{BaseRoot: f.root, OutRoot: filepath.Join(f.root, "Out"), ReleaseDir: relDir},
		[]Entry{{Archive: sideID, Offset: 40, Record: "big.rwav"}}, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied.Entries != 0 || applied.Skipped != 1 {
		t.Errorf("unexpected result %+v", applied)
	}
	side, _ := os.ReadFile(filepath.Join(f.root, "Out", filepath.FromSlash(sideID)))
	if !bytes.Equal(side, f.side) {
		t.Error("oversized record was written")
	}
}

func TestApply_Cancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	relDir, rel := f.release(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := filepath.Join(f.root, "Out")
	_, err := Apply(ctx, ApplyOptions{BaseRoot: f.root, OutRoot: out, ReleaseDir: relDir}, rel.Entries, nil)
	if !errors.Is(err, stage.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(primaryID))); !os.IsNotExist(err) {
		t.Error("no archive should be written after cancellation")
	}
}

func TestApply_RefusesToOverwriteBase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  func(t *testing.T, root string) string
	}{
		{
			name: "same root",
			out:  func(_ *testing.T, root string) string { return root },
		},
		{
			name: "same root unclean",
			out: func(_ *testing.T, root string) string {
				return filepath.Join(root, "ProgramData", "..")
			},
		},
		{
			name: "archive dir linked to base",
			out: func(t *testing.T, root string) string {
				out := filepath.Join(t.TempDir(), "Patched")
				if err := os.MkdirAll(out, 0o755); err != nil {
					t.Fatal(err)
				}
				if err := os.Symlink(filepath.Join(root, "ProgramData"), filepath.Join(out, "ProgramData")); err != nil {
					t.Skipf("symlinks unavailable: %v", err)
				}
				return out
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			relDir, rel := f.release(t)
			_, err := Apply(context.Background(), ApplyOptions{
				BaseRoot:      f.root,
				OutRoot:       tt.out(t, f.root),
				ReleaseDir:    relDir,
				UnmodifiedDir: f.unmod,
			}, rel.Entries, nil)
			if !errors.Is(err, ErrInPlace) {
				t.Errorf("err = %v, want ErrInPlace", err)
			}
			got, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(primaryID)))
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, f.primary) {
				t.Error("base archive was modified")
			}
		})
	}
}
