package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/wzpatch/internal/config"
)

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

var testLayout = config.ArchiveConfig{
	Primary: "ProgramData/WZSound.brsar",
	SideDir: "ProgramData/demo",
	SideExt: ".brsar",
}

func TestOpen(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "ProgramData/WZSound.brsar", []byte("RWARbank"))

	a, err := Open(root, "ProgramData/WZSound.brsar", RolePrimary)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()

	if string(a.Data) != "RWARbank" || a.Size() != 8 {
		t.Errorf("unexpected data %q", a.Data)
	}
	if a.ID != "ProgramData/WZSound.brsar" || a.Role != RolePrimary {
		t.Errorf("unexpected identity %q %v", a.ID, a.Role)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestOpen_EmptyFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "empty.brsar", nil)
	a, err := Open(root, "empty.brsar", RoleSide)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()
	if a.Size() != 0 {
		t.Errorf("Size = %d, want 0", a.Size())
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if _, err := Open(root, "missing.brsar", RolePrimary); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := Open(root, "../outside.brsar", RolePrimary); !errors.Is(err, ErrBadID) {
		t.Errorf("expected ErrBadID, got %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      string
		want    string
		wantErr bool
	}{
		{"ProgramData/WZSound.brsar", filepath.Join("root", "ProgramData", "WZSound.brsar"), false},
		{"a/../b.brsar", filepath.Join("root", "b.brsar"), false},
		{"../x", "", true},
		{"..", "", true},
		{"/etc/passwd", "", true},
	}
	for _, tt := range tests {
		got, err := ResolvePath("root", tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ResolvePath(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolvePath(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "ProgramData/WZSound.brsar", []byte("primary"))
	writeFile(t, root, "ProgramData/demo/scene10.brsar", []byte("ten"))
	writeFile(t, root, "ProgramData/demo/scene2.BRSAR", []byte("two"))
	writeFile(t, root, "ProgramData/demo/notes.txt", []byte("skip"))

	set, err := Discover(root, testLayout, false)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(set.Side) != 0 || set.Primary == nil {
		t.Errorf("side archives must be excluded when not allowed: %+v", set)
	}
	_ = set.Close()

	set, err = Discover(root, testLayout, true)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	defer set.Close()

	var ids []string
	for _, a := range set.All() {
		ids = append(ids, a.ID)
	}
	want := []string{
		"ProgramData/WZSound.brsar",
		"ProgramData/demo/scene2.BRSAR",
		"ProgramData/demo/scene10.brsar",
	}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("archive ids mismatch (-want +got):\n%s", diff)
	}
	if a := set.Lookup("ProgramData/demo/scene10.brsar"); a == nil || a.Role != RoleSide || string(a.Data) != "ten" {
		t.Errorf("Lookup returned %+v", a)
	}
	if set.Lookup("nope") != nil {
		t.Error("Lookup of unknown id should be nil")
	}
}

func TestDiscover_MissingPrimary(t *testing.T) {
	t.Parallel()

	if _, err := Discover(t.TempDir(), testLayout, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSideIDs_MissingDir(t *testing.T) {
	t.Parallel()

	ids, err := SideIDs(t.TempDir(), testLayout)
	if err != nil || ids != nil {
		t.Errorf("SideIDs = %v, %v; want nil, nil", ids, err)
	}
}
