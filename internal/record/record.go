// Package record defines the identity of an RWAV audio record and of the
// indexed containers that hold them. The canonical filename derived here is
// the join key between extraction, editing, building and patching, so the
// same physical record always receives the same name across runs.
package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Extensions used by the pipeline.
const (
	RecordExt    = ".rwav"
	ContainerExt = ".brwsd"
)

const (
	containerPrefix = "Index_"
	recordPrefix    = "Audio_"
)

// ErrBadName indicates a filename or identifier that does not follow the
// canonical naming scheme.
var ErrBadName = errors.New("not a canonical name")

// AudioRecord locates one RWAV record inside an indexed container.
// Sequence is the zero-based position of the record within its container.
type AudioRecord struct {
	ContainerID string
	Sequence    uint32
	Offset      uint32
	Length      uint32
}

// Name returns the canonical filename of the record.
func (r AudioRecord) Name() string {
	n, err := ContainerNumber(r.ContainerID)
	if err != nil {
		// Non-canonical ids still get a stable, if unusual, name.
		return recordPrefix + r.ContainerID + "_" + fmt.Sprintf("%03d", r.Sequence) + RecordExt
	}
	return Name(n, int(r.Sequence))
}

// Name returns Audio_<container>_<position>.rwav with both numbers padded to
// three digits.
func Name(container, position int) string {
	return fmt.Sprintf("%s%03d_%03d%s", recordPrefix, container, position, RecordExt)
}

// ParseName is the inverse of Name.
func ParseName(name string) (container, position int, err error) {
	rest, ok := strings.CutPrefix(name, recordPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	rest, ok = strings.CutSuffix(rest, RecordExt)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	a, b, ok := strings.Cut(rest, "_")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	if container, err = strconv.Atoi(a); err != nil || container < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	if position, err = strconv.Atoi(b); err != nil || position < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return container, position, nil
}

// ContainerID returns the canonical identifier Index_<n> for container n.
func ContainerID(n int) string {
	return fmt.Sprintf("%s%03d", containerPrefix, n)
}

// ContainerNumber extracts n from an identifier such as "Index_4" or
// "Index_004".
func ContainerNumber(id string) (int, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(id), containerPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: container id %q", ErrBadName, id)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: container id %q", ErrBadName, id)
	}
	return n, nil
}

// NormalizeContainerID rewrites an identifier to its zero-padded form.
func NormalizeContainerID(id string) (string, error) {
	n, err := ContainerNumber(id)
	if err != nil {
		return "", err
	}
	return ContainerID(n), nil
}

// ContainerName returns the indexed-container filename
// Index_<n>_<rwav count>.brwsd.
func ContainerName(n, count int) string {
	return fmt.Sprintf("%s%03d_%03d%s", containerPrefix, n, count, ContainerExt)
}

// ParseContainerName is the inverse of ContainerName. It returns the
// container number and the RWAV count recorded in the filename.
func ParseContainerName(name string) (n, count int, err error) {
	rest, ok := strings.CutPrefix(name, containerPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	rest, ok = strings.CutSuffix(rest, ContainerExt)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	a, b, ok := strings.Cut(rest, "_")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	if n, err = strconv.Atoi(a); err != nil || n < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	if count, err = strconv.Atoi(b); err != nil || count < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return n, count, nil
}
