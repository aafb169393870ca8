package patch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/papapumpkin/wzpatch/internal/record"
)

// Report classifies the edited records of a project.
type Report struct {
	TooBig    []*SizeError
	Unchanged []string
	Edited    []string
	// Untouched lists records with no edited file.
	Untouched []string
}

// Check compares every record in names against its edited copy in modDir.
// With nil names, the .rwav files of unmodDir are checked in natural order.
// Records missing from unmodDir are ignored.
func Check(unmodDir, modDir string, names []string) (Report, error) {
	if names == nil {
		var err error
		if names, err = ListRecords(unmodDir); err != nil {
			return Report{}, err
		}
	}
	var rep Report
	for _, name := range names {
		st, err := compare(filepath.Join(unmodDir, name), filepath.Join(modDir, name))
		if err != nil {
			return rep, err
		}
		switch st.status {
		case statusMissing:
		case statusUntouched:
			rep.Untouched = append(rep.Untouched, name)
		case statusTooBig:
			rep.TooBig = append(rep.TooBig, &SizeError{Record: name, Original: st.original, Edited: st.edited})
		case statusUnchanged:
			rep.Unchanged = append(rep.Unchanged, name)
		case statusEdited:
			rep.Edited = append(rep.Edited, name)
		}
	}
	return rep, nil
}

// ListRecords returns the .rwav files in dir in natural order.
func ListRecords(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("patch: list %s: %w", dir, err)
	}
	names := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), record.RecordExt) {
			names = append(names, e.Name())
		}
	}
	record.SortNatural(names)
	return names, nil
}

type status int

const (
	statusMissing status = iota
	statusUntouched
	statusTooBig
	statusUnchanged
	statusEdited
)

type comparison struct {
	status   status
	original int64
	edited   int64
	// unmod is the original record, read only when the edit is eligible.
	unmod []byte
}

func compare(unmodPath, modPath string) (comparison, error) {
	ufi, err := os.Stat(unmodPath)
	if err != nil {
		if os.IsNotExist(err) {
			return comparison{status: statusMissing}, nil
		}
		return comparison{}, fmt.Errorf("patch: %w", err)
	}
	mi, err := os.Stat(modPath)
	if err != nil {
		if os.IsNotExist(err) {
			return comparison{status: statusUntouched, original: ufi.Size()}, nil
		}
		return comparison{}, fmt.Errorf("patch: %w", err)
	}
	c := comparison{original: ufi.Size(), edited: mi.Size()}
	if c.edited > c.original {
		c.status = statusTooBig
		return c, nil
	}
	if c.unmod, err = os.ReadFile(unmodPath); err != nil {
		return comparison{}, fmt.Errorf("patch: %w", err)
	}
	mod, err := os.ReadFile(modPath)
	if err != nil {
		return comparison{}, fmt.Errorf("patch: %w", err)
	}
	c.status = statusEdited
	if bytes.Equal(c.unmod, mod) {
		c.status = statusUnchanged
	}
	return c, nil
}
