package container

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/papapumpkin/wzpatch/internal/fsutil"
)

// Manifest errors. A manifest that cannot be trusted would misalign every
// record after the fault, so these are fatal for the load.
var (
	// ErrManifestGap is wrapped by ManifestGapError.
	ErrManifestGap = errors.New("audio map is not contiguous")
	// ErrManifestName indicates an entry whose name is not a plain filename.
	ErrManifestName = errors.New("audio map entry is not a plain filename")
)

// maxReported caps the indices listed in a ManifestGapError.
const maxReported = 32

var manifestLine = regexp.MustCompile(`^\s*Audio\[(\d+)\]\s*:\s*(.+?)\s*$`)

// ManifestGapError lists the indices that are missing or repeated.
type ManifestGapError struct {
	Source    string
	Missing   []int
	Duplicate []int
}

// Error returns a human-readable description of the gap.
func (e *ManifestGapError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing Audio%v", e.Missing))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate Audio%v", e.Duplicate))
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, ErrManifestGap, strings.Join(parts, ", "))
}

// Unwrap returns ErrManifestGap.
func (e *ManifestGapError) Unwrap() error {
	return ErrManifestGap
}

// FormatManifest renders names as an audio map, one Audio[i]:name line per
// record in build order.
func FormatManifest(names []string) []byte {
	var b bytes.Buffer
	for i, n := range names {
		fmt.Fprintf(&b, "Audio[%d]:%s\n", i, n)
	}
	return b.Bytes()
}

// WriteManifest atomically writes the audio map for names to path.
func WriteManifest(path string, names []string) error {
	if err := fsutil.WriteFile(path, FormatManifest(names)); err != nil {
		return fmt.Errorf("container: write manifest: %w", err)
	}
	return nil
}

// ParseManifest reads an audio map. Lines that are not Audio[i]:name entries
// are ignored. Indices must run from 0 without gaps or repeats.
func ParseManifest(r io.Reader, source string) ([]string, error) {
	byIndex := make(map[int]string)
	var dups []int
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := manifestLine.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		i, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w: index %s", source, ErrManifestGap, m[1])
		}
		name := m[2]
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return nil, fmt.Errorf("%s: %w: %q", source, ErrManifestName, name)
		}
		if _, seen := byIndex[i]; seen {
			dups = append(dups, i)
			continue
		}
		byIndex[i] = name
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("container: read manifest %s: %w", source, err)
	}

	keys := make([]int, 0, len(byIndex))
	for i := range byIndex {
		keys = append(keys, i)
	}
	slices.Sort(keys)
	var missing []int
	next := 0
	for _, k := range keys {
		for ; next < k && len(missing) < maxReported; next++ {
			missing = append(missing, next)
		}
		next = k + 1
	}
	if len(missing) > 0 || len(dups) > 0 {
		slices.Sort(dups)
		return nil, &ManifestGapError{Source: source, Missing: missing, Duplicate: slices.Compact(dups)}
	}
	names := make([]string, len(keys))
	for i := range names {
		names[i] = byIndex[i]
	}
	return names, nil
}

// LoadManifest reads the audio map at path.
func LoadManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("container: open manifest: %w", err)
	}
	defer f.Close()
	return ParseManifest(f, path)
}
