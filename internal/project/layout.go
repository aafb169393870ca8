package project

import "path/filepath"

const (
	projectsDir     = "Projects"
	releasesDir     = "Releases"
	indexesDir      = "Indexes"
	instructionsDir = "Instructions"
	programDataDir  = "ProgramData"
)

// Layout resolves the paths of one project inside a work directory.
type Layout struct {
	Root string
	Name string
}

// NewLayout returns the layout of project name under root.
func NewLayout(root, name string) Layout {
	return Layout{Root: root, Name: name}
}

// Dir returns Projects/<name>.
func (l Layout) Dir() string { return filepath.Join(l.Root, projectsDir, l.Name) }

// Settings returns the project.toml path.
func (l Layout) Settings() string { return filepath.Join(l.Dir(), FileName) }

// Unmodified returns the directory of extracted original records.
func (l Layout) Unmodified() string { return filepath.Join(l.Dir(), "UnmodifiedRwavs") }

// Modified returns the directory the user drops edited records into.
func (l Layout) Modified() string { return filepath.Join(l.Dir(), "ModifiedRwavs") }

// Output returns the directory that receives patched archive copies.
func (l Layout) Output() string { return filepath.Join(l.Dir(), "Output") }

// Container returns the path of the built project container.
func (l Layout) Container() string { return filepath.Join(l.Dir(), "your_project.brwsd") }

// Manifest returns the path of the audio map written next to the container.
func (l Layout) Manifest() string { return filepath.Join(l.Dir(), "your_project_AudioMap.txt") }

// ReleaseDir returns the directory holding the patch file and edited records.
func (l Layout) ReleaseDir() string {
	return filepath.Join(l.Root, releasesDir, l.Name, "PatchInstructions")
}

// IndexDir returns the shared directory of indexed containers.
func (l Layout) IndexDir() string { return filepath.Join(l.Root, indexesDir) }

// InstructionsDir returns the shared directory of instruction documents.
func (l Layout) InstructionsDir() string { return filepath.Join(l.Root, instructionsDir) }

// ProgramData returns the directory of vendor archives.
func (l Layout) ProgramData() string { return filepath.Join(l.Root, programDataDir) }

// Instruction resolves a document path stored in project.toml.
func (l Layout) Instruction(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(l.InstructionsDir(), filepath.FromSlash(rel))
}
