// Package telemetry provides a JSONL event stream for recording what each
// pipeline stage did to a project. Every stage start and finish, extracted
// record, removed duplicate, built container, generated or applied patch and
// detected edit is recorded as a structured JSON event, making runs auditable
// after the fact.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindStageStart       = "stage_start"
	KindStageDone        = "stage_done"
	KindStageCancelled   = "stage_cancelled"
	KindRecordExtracted  = "record_extracted"
	KindDuplicateRemoved = "duplicate_removed"
	KindContainerBuilt   = "container_built"
	KindPatchGenerated   = "patch_generated"
	KindPatchApplied     = "patch_applied"
	KindEditDetected     = "edit_detected"
	KindWarning          = "warning"
)

// DefaultPath is where a workspace keeps its event stream.
const DefaultPath = ".wzpatch/telemetry.jsonl"

// Event represents a single telemetry record. Each event carries a timestamp,
// a kind tag, and optional context identifiers (project, stage) along with
// arbitrary structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	Project   string    `json:"project,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
	now  func() time.Time
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file and its directory are created if they do not exist; an
// existing file is appended to.
func NewEmitter(path string) (*Emitter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: create dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

// Emit writes a single event to the JSONL file. A zero Timestamp is filled
// in with the current time. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
