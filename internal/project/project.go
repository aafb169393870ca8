// Package project persists the per-project settings of a workspace and
// knows where every stage reads and writes its files.
//
// A work directory looks like:
//
//	ProgramData/                 vendor archives and the base blank template
//	Indexes/                     Index_<n>_<count>.brwsd
//	Instructions/                instruction documents
//	Projects/<name>/project.toml
//	Projects/<name>/UnmodifiedRwavs/
//	Projects/<name>/ModifiedRwavs/
//	Projects/<name>/Output/      patched archive copies
//	Releases/<name>/PatchInstructions/
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/wzpatch/internal/fsutil"
	"github.com/papapumpkin/wzpatch/internal/record"
	"github.com/papapumpkin/wzpatch/internal/selection"
)

// FileName is the settings file inside a project directory.
const FileName = "project.toml"

const currentVersion = 1

// Sentinel errors for project access.
var (
	// ErrExists indicates Create was called for an existing project.
	ErrExists = errors.New("project already exists")
	// ErrNotFound indicates a project without a settings file.
	ErrNotFound = errors.New("project not found")
	// ErrBadName indicates a project name that is not a simple directory name.
	ErrBadName = errors.New("invalid project name")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Project is the persisted state of one project.
type Project struct {
	Version   int       `toml:"version"`
	Name      string    `toml:"name"`
	CreatedAt time.Time `toml:"created_at"`
	// AllowSideArchives extends extraction and patching to the per-scene
	// archives next to the primary one.
	AllowSideArchives bool `toml:"allow_side_archives"`
	// Instructions are document paths relative to the Instructions dir.
	Instructions []string `toml:"instructions"`
	// Selection is the merged selection in compact form, keyed by
	// container id.
	Selection map[string][]string `toml:"selection"`
	// SkipList names records excluded from patch generation.
	SkipList []string `toml:"skip_list,omitempty"`
}

// ValidateName rejects names that could escape the Projects directory.
func ValidateName(name string) error {
	if !validName.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}

// Create makes the project directories and writes a fresh settings file.
func Create(root, name string, allowSide bool, now time.Time) (*Project, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	l := NewLayout(root, name)
	if _, err := os.Stat(l.Settings()); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}
	for _, dir := range []string{l.Unmodified(), l.Modified(), l.Output(), l.IndexDir(), l.InstructionsDir(), l.ProgramData()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	p := &Project{
		Version:           currentVersion,
		Name:              name,
		CreatedAt:         now.UTC().Truncate(time.Second),
		AllowSideArchives: allowSide,
		Selection:         map[string][]string{},
	}
	if err := Save(root, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads the settings of project name.
func Load(root, name string) (*Project, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	path := NewLayout(root, name).Settings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}
	var p Project
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = name
	}
	if p.Selection == nil {
		p.Selection = map[string][]string{}
	}
	return &p, nil
}

// Save writes the settings file atomically.
func Save(root string, p *Project) error {
	if err := ValidateName(p.Name); err != nil {
		return err
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", FileName, err)
	}
	if err := fsutil.WriteFile(NewLayout(root, p.Name).Settings(), data); err != nil {
		return fmt.Errorf("writing %s: %w", FileName, err)
	}
	return nil
}

// List returns the names of the projects under root in natural order.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, projectsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, projectsDir, e.Name(), FileName)); err == nil {
			names = append(names, e.Name())
		}
	}
	record.SortNatural(names)
	return names, nil
}

// Resolved returns the persisted selection.
func (p *Project) Resolved() (selection.Selection, error) {
	return selection.FromCompact(p.Selection)
}

// SetSelection replaces the persisted selection with the compact form of s.
func (p *Project) SetSelection(s selection.Selection) {
	p.Selection = s.ToCompact()
}
