// Package stage holds the vocabulary shared by every long-running pipeline
// stage: stage names and the cooperative cancellation checkpoint.
package stage

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled is returned when a stage observes a cancelled context between
// iterations of its dominant loop. Output written before that point is
// complete and durable.
var ErrCancelled = errors.New("cancelled by user")

// Stage names used for progress reporting and telemetry.
const (
	Scan    = "scan"
	Index   = "index"
	Extract = "extract"
	Build   = "build"
	Unpack  = "unpack"
	Check   = "check"
	Patch   = "patch"
	Apply   = "apply"
)

// Checkpoint reports ErrCancelled (wrapping the context error) once ctx is
// done. Stages call it between items, never in the middle of a write.
func Checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

// IsCancelled reports whether err stems from a cooperative cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
