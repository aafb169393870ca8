// Package archive opens the vendor sound banks that records are extracted
// from and patched into. An archive is an immutable byte view with a
// filesystem identity and a role; only a copy of it is ever written.
package archive

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/wzpatch/internal/config"
	"github.com/papapumpkin/wzpatch/internal/record"
)

// Sentinel errors for archive access.
var (
	// ErrTooLarge indicates an archive whose offsets do not fit in 32 bits.
	ErrTooLarge = errors.New("archive exceeds 4 GiB")
	// ErrNotFound indicates a configured archive is absent.
	ErrNotFound = errors.New("archive not found")
	// ErrBadID indicates an archive id that escapes the work directory.
	ErrBadID = errors.New("archive id outside work directory")
)

// Role distinguishes the base sound bank from the per-scene banks patched
// with the same records.
type Role uint8

// Archive roles.
const (
	RolePrimary Role = iota
	RoleSide
)

// String returns "primary" or "side".
func (r Role) String() string {
	if r == RoleSide {
		return "side"
	}
	return "primary"
}

// Archive is a read-only view of one sound bank.
type Archive struct {
	// ID is the slash-separated path relative to the work directory. It is
	// the archive's name in patch files.
	ID   string
	Path string
	Role Role
	Data []byte

	release func() error
}

// Open maps the archive at root/id. The caller must Close it.
func Open(root, id string, role Role) (*Archive, error) {
	path, err := ResolvePath(root, id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("archive: open %s: %w", id, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("archive: stat %s: %w", id, err)
	}
	if info.Size() > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, id, info.Size())
	}
	data, release, err := mapFile(f, int(info.Size()))
	if err != nil {
		return nil, fmt.Errorf("archive: map %s: %w", id, err)
	}
	return &Archive{
		ID:      filepath.ToSlash(id),
		Path:    path,
		Role:    role,
		Data:    data,
		release: release,
	}, nil
}

// Size returns the archive length in bytes.
func (a *Archive) Size() int64 {
	return int64(len(a.Data))
}

// Close releases the mapping. Data must not be used afterwards.
func (a *Archive) Close() error {
	if a == nil || a.release == nil {
		return nil
	}
	err := a.release()
	a.release = nil
	a.Data = nil
	if err != nil {
		return fmt.Errorf("archive: close %s: %w", a.ID, err)
	}
	return nil
}

// ResolvePath joins a slash-separated archive id onto root, rejecting ids
// that would leave root.
func ResolvePath(root, id string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(id))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrBadID, id)
	}
	return filepath.Join(root, clean), nil
}

// Set is the family of archives a patch targets.
type Set struct {
	Primary *Archive
	Side    []*Archive
}

// All returns the primary archive followed by the side archives.
func (s *Set) All() []*Archive {
	out := make([]*Archive, 0, 1+len(s.Side))
	if s.Primary != nil {
		out = append(out, s.Primary)
	}
	return append(out, s.Side...)
}

// Lookup returns the archive with the given id, or nil.
func (s *Set) Lookup(id string) *Archive {
	for _, a := range s.All() {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Close closes every archive in the set.
func (s *Set) Close() error {
	var errs []error
	for _, a := range s.All() {
		errs = append(errs, a.Close())
	}
	return errors.Join(errs...)
}

// SideIDs lists the side archives under cfg.SideDir in natural order. A
// missing directory yields no ids.
func SideIDs(root string, cfg config.ArchiveConfig) ([]string, error) {
	if cfg.SideDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(cfg.SideDir)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("archive: list %s: %w", cfg.SideDir, err)
	}
	primary := filepath.ToSlash(filepath.Clean(filepath.FromSlash(cfg.Primary)))
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), cfg.SideExt) {
			continue
		}
		id := filepath.ToSlash(filepath.Join(filepath.FromSlash(cfg.SideDir), e.Name()))
		if id == primary {
			continue
		}
		ids = append(ids, id)
	}
	record.SortNatural(ids)
	return ids, nil
}

// Discover opens the primary archive and, when allowSide is set, every side
// archive. Side archives are a per-project choice, passed in explicitly.
func Discover(root string, cfg config.ArchiveConfig, allowSide bool) (*Set, error) {
	primary, err := Open(root, cfg.Primary, RolePrimary)
	if err != nil {
		return nil, err
	}
	set := &Set{Primary: primary}
	if !allowSide {
		return set, nil
	}
	ids, err := SideIDs(root, cfg)
	if err != nil {
		_ = set.Close()
		return nil, err
	}
	for _, id := range ids {
		a, err := Open(root, id, RoleSide)
		if err != nil {
			_ = set.Close()
			return nil, err
		}
		set.Side = append(set.Side, a)
	}
	return set, nil
}
