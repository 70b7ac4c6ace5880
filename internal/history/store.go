// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records conversions in a SQLite database so past batches,
// expansions and questions can be listed and exported.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/textbridge/pkg/types"
)

const (
	dbFile       = "history.db"
	defaultLimit = 50
)

// Operation names the CLI action an entry records.
type Operation string

const (
	OpEncode Operation = "encode"
	OpDecode Operation = "decode"
	OpBatch  Operation = "batch"
	OpExpand Operation = "expand"
	OpAsk    Operation = "ask"
)

// Entry is one recorded operation.
type Entry struct {
	ID         string            `json:"id" yaml:"id"`
	Operation  Operation         `json:"operation" yaml:"operation"`
	Domain     string            `json:"domain,omitempty" yaml:"domain,omitempty"`
	Input      string            `json:"input" yaml:"input"`
	Output     string            `json:"output,omitempty" yaml:"output,omitempty"`
	Total      int               `json:"total" yaml:"total"`
	Successful int               `json:"successful" yaml:"successful"`
	Failed     int               `json:"failed" yaml:"failed"`
	Errors     []types.ItemError `json:"errors,omitempty" yaml:"errors,omitempty"`
	CreatedAt  time.Time         `json:"createdAt" yaml:"created_at"`
}

// QueryOptions filters List.
type QueryOptions struct {
	Operation Operation
	Domain    string
	// Limit caps the number of entries. Zero uses the store default.
	Limit int
}

// Store manages the history SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates dir/history.db and its schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			operation TEXT NOT NULL,
			domain TEXT,
			input TEXT NOT NULL,
			output TEXT,
			total INTEGER NOT NULL DEFAULT 0,
			successful INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			errors TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_operation ON entries(operation)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores e. A missing ID or timestamp is filled in; the stored entry
// is returned.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	if err := s.insert(ctx, s.db, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) insert(ctx context.Context, db execer, e Entry) error {
	var errorsJSON sql.NullString
	if len(e.Errors) > 0 {
		data, err := json.Marshal(e.Errors)
		if err != nil {
			return fmt.Errorf("marshaling errors: %w", err)
		}
		errorsJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO entries (id, operation, domain, input, output, total, successful, failed, errors, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		e.ID, string(e.Operation), e.Domain, e.Input, e.Output,
		e.Total, e.Successful, e.Failed, errorsJSON,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting entry %s: %w", e.ID, err)
	}
	return nil
}

// List returns entries newest first.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT id, operation, domain, input, output, total, successful, failed, errors, created_at
		FROM entries WHERE 1=1`)
	if opts.Operation != "" {
		qb.WriteString(` AND operation = ?`)
		args = append(args, string(opts.Operation))
	}
	if opts.Domain != "" {
		qb.WriteString(` AND domain = ?`)
		args = append(args, opts.Domain)
	}
	qb.WriteString(` ORDER BY created_at DESC, rowid DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e          Entry
			op         string
			domain     sql.NullString
			output     sql.NullString
			errorsJSON sql.NullString
			created    string
		)
		if err := rows.Scan(&e.ID, &op, &domain, &e.Input, &output,
			&e.Total, &e.Successful, &e.Failed, &errorsJSON, &created); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		e.Operation = Operation(op)
		e.Domain = domain.String
		e.Output = output.String
		if errorsJSON.Valid {
			json.Unmarshal([]byte(errorsJSON.String), &e.Errors)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return entries, nil
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}
