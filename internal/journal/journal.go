package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/docforge/internal/compiler"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added idx_compiles_session
const currentSchemaVersion = 1

// Status is the outcome of a compile run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("journal entry not found")

// Entry is one recorded compile run.
type Entry struct {
	ID             string                `json:"id"`
	Seq            int64                 `json:"seq"`
	SessionDigest  string                `json:"session_digest"`
	Source         string                `json:"source,omitempty"`
	Format         string                `json:"format"`
	Status         Status                `json:"status"`
	ErrorKind      string                `json:"error_kind,omitempty"`
	ArtifactDigest string                `json:"artifact_digest,omitempty"`
	ArtifactSize   int                   `json:"artifact_size"`
	Diagnostics    []compiler.Diagnostic `json:"diagnostics,omitempty"`
}

// IDGenerator produces run ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Journal is a SQLite-backed compile history.
type Journal struct {
	db  *sql.DB
	ids IDGenerator
}

// Option configures a Journal.
type Option func(*Journal)

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(j *Journal) {
		j.ids = g
	}
}

// Open creates or opens the journal database at path and applies pragmas
// and migrations. Opening an existing journal is safe.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	j := &Journal{db: db, ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record stores e with a fresh id and the next seq, and returns the stored
// entry.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.Status != StatusSucceeded && e.Status != StatusFailed {
		return Entry{}, fmt.Errorf("record: invalid status %q", e.Status)
	}
	diags := e.Diagnostics
	if diags == nil {
		diags = []compiler.Diagnostic{}
	}
	diagJSON, err := json.Marshal(diags)
	if err != nil {
		return Entry{}, fmt.Errorf("record: marshal diagnostics: %w", err)
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("record: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM compiles`).Scan(&seq); err != nil {
		return Entry{}, fmt.Errorf("record: next seq: %w", err)
	}

	e.ID = j.ids.Generate()
	e.Seq = seq
	_, err = tx.ExecContext(ctx, `
		INSERT INTO compiles
		(id, seq, session_digest, source, format, status, error_kind, artifact_digest, artifact_size, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Seq,
		e.SessionDigest,
		e.Source,
		e.Format,
		string(e.Status),
		e.ErrorKind,
		e.ArtifactDigest,
		e.ArtifactSize,
		string(diagJSON),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("record: commit: %w", err)
	}
	e.Diagnostics = diags
	return e, nil
}

const selectColumns = `id, seq, session_digest, source, format, status, error_kind, artifact_digest, artifact_size, diagnostics`

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM compiles ORDER BY seq DESC, id ASC COLLATE BINARY`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return entries, nil
}

// Get returns the entry with the given id.
func (j *Journal) Get(ctx context.Context, id string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM compiles WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get %s: %w", id, err)
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e        Entry
		status   string
		diagJSON string
	)
	err := s.Scan(
		&e.ID,
		&e.Seq,
		&e.SessionDigest,
		&e.Source,
		&e.Format,
		&status,
		&e.ErrorKind,
		&e.ArtifactDigest,
		&e.ArtifactSize,
		&diagJSON,
	)
	if err != nil {
		return Entry{}, err
	}
	e.Status = Status(status)
	if err := json.Unmarshal([]byte(diagJSON), &e.Diagnostics); err != nil {
		return Entry{}, fmt.Errorf("unmarshal diagnostics: %w", err)
	}
	return e, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		// Journals created before the index existed.
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_compiles_session ON compiles(session_digest, seq)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// pragma returns the current value of a pragma.
func (j *Journal) pragma(name string) (string, error) {
	var value string
	if err := j.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to query %s: %w", name, err)
	}
	return value, nil
}
