package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is an extracted original record.
type Record struct {
	Name      string
	Container string
	Position  int
	Size      int64
	SHA256    string
	UpdatedAt time.Time
}

// EditStatus classifies an edited record.
type EditStatus string

// Edit statuses.
const (
	EditEdited    EditStatus = "edited"
	EditUnchanged EditStatus = "unchanged"
	EditTooBig    EditStatus = "too_big"
	EditRemoved   EditStatus = "removed"
)

// Edit is the last known state of an edited record.
type Edit struct {
	Name      string
	Size      int64
	SHA256    string
	Status    EditStatus
	UpdatedAt time.Time
}

// Run kinds.
const (
	RunPatch = "patch"
	RunApply = "apply"
)

// Run is one patch generation or application.
type Run struct {
	ID        string
	Kind      string
	Entries   int
	TooBig    int
	Warnings  int
	CreatedAt time.Time
}

// ReplaceRecords makes recs the complete record set of project. Extraction
// clears its output directory, so the previous set is always discarded.
func (c *Catalog) ReplaceRecords(ctx context.Context, project string, recs []Record) error {
	if c == nil {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: begin tx for records: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE project = ?", project); err != nil {
		return fmt.Errorf("catalog: clear records for %q: %w", project, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (project, name, container, position, size, sha256)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("catalog: prepare record insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, project, r.Name, r.Container, r.Position, r.Size, r.SHA256); err != nil {
			return fmt.Errorf("catalog: insert record %q: %w", r.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: commit records: %w", err)
	}
	return nil
}

// Records returns the records of project ordered by name.
func (c *Catalog) Records(ctx context.Context, project string) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, container, position, size, sha256, updated_at
		FROM records WHERE project = ? ORDER BY name`, project)
	if err != nil {
		return nil, fmt.Errorf("catalog: query records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts string
		if err := rows.Scan(&r.Name, &r.Container, &r.Position, &r.Size, &r.SHA256, &ts); err != nil {
			return nil, fmt.Errorf("catalog: scan record: %w", err)
		}
		if r.UpdatedAt, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("catalog: parse record timestamp: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate records: %w", err)
	}
	return out, nil
}

// SetEdit upserts the state of an edited record.
func (c *Catalog) SetEdit(ctx context.Context, project string, e Edit) error {
	if c == nil {
		return nil
	}
	const q = `
		INSERT INTO edits (project, name, size, sha256, status, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(project, name) DO UPDATE SET
			size       = excluded.size,
			sha256     = excluded.sha256,
			status     = excluded.status,
			updated_at = CURRENT_TIMESTAMP`
	if _, err := c.db.ExecContext(ctx, q, project, e.Name, e.Size, e.SHA256, string(e.Status)); err != nil {
		return fmt.Errorf("catalog: set edit %q=%q: %w", e.Name, e.Status, err)
	}
	return nil
}

// Edits returns the edits of project ordered by name.
func (c *Catalog) Edits(ctx context.Context, project string) ([]Edit, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, size, sha256, status, updated_at
		FROM edits WHERE project = ? ORDER BY name`, project)
	if err != nil {
		return nil, fmt.Errorf("catalog: query edits: %w", err)
	}
	defer rows.Close()

	var out []Edit
	for rows.Next() {
		var e Edit
		var status, ts string
		if err := rows.Scan(&e.Name, &e.Size, &e.SHA256, &status, &ts); err != nil {
			return nil, fmt.Errorf("catalog: scan edit: %w", err)
		}
		e.Status = EditStatus(status)
		if e.UpdatedAt, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("catalog: parse edit timestamp: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate edits: %w", err)
	}
	return out, nil
}

// AddRun stores a run under a fresh id and returns it.
func (c *Catalog) AddRun(ctx context.Context, project string, r Run) (Run, error) {
	if c == nil {
		return r, nil
	}
	r.ID = c.newID()
	const q = `INSERT INTO runs (id, project, kind, entries, too_big, warnings) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, q, r.ID, project, r.Kind, r.Entries, r.TooBig, r.Warnings); err != nil {
		return r, fmt.Errorf("catalog: add run: %w", err)
	}
	return r, nil
}

// Runs returns up to limit runs of project, newest first.
func (c *Catalog) Runs(ctx context.Context, project string, limit int) ([]Run, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, kind, entries, too_big, warnings, created_at
		FROM runs WHERE project = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`, project, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var ts string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Entries, &r.TooBig, &r.Warnings, &ts); err != nil {
			return nil, fmt.Errorf("catalog: scan run: %w", err)
		}
		if r.CreatedAt, err = parseTimestamp(ts); err != nil {
			return nil, fmt.Errorf("catalog: parse run timestamp: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate runs: %w", err)
	}
	return out, nil
}

// lastRun returns the newest run of kind for project, or nil.
func (c *Catalog) lastRun(ctx context.Context, project, kind string) (*Run, error) {
	var r Run
	var ts string
	err := c.db.QueryRowContext(ctx, `SELECT id, kind, entries, too_big, warnings, created_at
		FROM runs WHERE project = ? AND kind = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, project, kind).
		Scan(&r.ID, &r.Kind, &r.Entries, &r.TooBig, &r.Warnings, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: last %s run: %w", kind, err)
	}
	if r.CreatedAt, err = parseTimestamp(ts); err != nil {
		return nil, fmt.Errorf("catalog: parse run timestamp: %w", err)
	}
	return &r, nil
}

// Summary counts what the catalog knows about a project.
type Summary struct {
	Records   int
	Edits     map[EditStatus]int
	LastPatch *Run
	LastApply *Run
}

// Summarize returns the status counts for project.
func (c *Catalog) Summarize(ctx context.Context, project string) (Summary, error) {
	s := Summary{Edits: make(map[EditStatus]int)}
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE project = ?", project).Scan(&s.Records); err != nil {
		return s, fmt.Errorf("catalog: count records: %w", err)
	}
	rows, err := c.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM edits WHERE project = ? GROUP BY status", project)
	if err != nil {
		return s, fmt.Errorf("catalog: count edits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return s, fmt.Errorf("catalog: scan edit count: %w", err)
		}
		s.Edits[EditStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return s, fmt.Errorf("catalog: iterate edit counts: %w", err)
	}
	if s.LastPatch, err = c.lastRun(ctx, project, RunPatch); err != nil {
		return s, err
	}
	if s.LastApply, err = c.lastRun(ctx, project, RunApply); err != nil {
		return s, err
	}
	return s, nil
}
