// Package history records the outcome of every variant build in SQLite.
package history

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its dialect and filesystem in package globals.
var migrateMu sync.Mutex

// Build statuses.
const (
	StatusBuilt   = "built"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Entry is one variant build.
type Entry struct {
	ID             int64     `json:"id"`
	JobID          string    `json:"job_id"`
	Source         string    `json:"source"`
	Group          int       `json:"group"`
	Variant        string    `json:"variant"`
	Template       string    `json:"template"`
	Outputs        []string  `json:"outputs"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	DefinitionHash string    `json:"definition_hash"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is a build history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path and applies
// pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate history db: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts e. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (job_id, source, group_index, variant, template, outputs,
			status, error, duration_ms, definition_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.JobID, e.Source, e.Group, e.Variant, e.Template, strings.Join(e.Outputs, "\n"),
		e.Status, e.Error, e.DurationMs, e.DefinitionHash, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record build: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. A non-empty jobID
// restricts the result to that job.
func (s *Store) Recent(ctx context.Context, jobID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, job_id, source, group_index, variant, template, outputs,
		status, error, duration_ms, definition_hash, created_at FROM builds`
	args := []any{}
	if jobID != "" {
		query += ` WHERE job_id = ?`
		args = append(args, jobID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var outputs string
		if err := rows.Scan(&e.ID, &e.JobID, &e.Source, &e.Group, &e.Variant, &e.Template, &outputs,
			&e.Status, &e.Error, &e.DurationMs, &e.DefinitionHash, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		if outputs != "" {
			e.Outputs = strings.Split(outputs, "\n")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
