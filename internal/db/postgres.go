package db

import (
	"context"
	_ "embed"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaSQL is the single source of truth for the database schema.
// It is embedded at compile time from schema.sql.
//
//go:embed schema.sql
var schemaSQL string

// Store wraps a Postgres connection pool. All access to the stops and routes
// tables goes through it.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool against the given database URL
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// EnsureSchema creates tables and the trigram extension if they don't exist.
// Uses the embedded schema.sql file as the single source of truth.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	log.Println("Database schema ensured (from embedded schema.sql)")
	return nil
}

// Execute runs a statement that returns no rows
func (s *Store) Execute(ctx context.Context, sql string, args ...any) error {
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// Fetch runs a query and returns its rows. The caller must close them.
func (s *Store) Fetch(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return rows, nil
}

// Acquire runs fn inside a transaction. The transaction is rolled back if fn
// returns an error or panics, committed otherwise.
func (s *Store) Acquire(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// replaceableTables lists the tables ReplaceTables may target. Table names
// are interpolated into SQL, so only known identifiers are allowed through.
var replaceableTables = map[string]bool{
	"stops":  true,
	"routes": true,
}

// TableData is a full replacement payload for one table
type TableData struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// ReplaceTables swaps the full contents of the given tables in one
// transaction: each buffer is bulk-copied into a temporary table, the target
// is emptied, and the temporary rows are inserted with conflicting keys
// dropped. On any failure the whole transaction rolls back and every prior
// snapshot remains readable.
func (s *Store) ReplaceTables(ctx context.Context, tables []TableData) error {
	for _, t := range tables {
		if !replaceableTables[t.Name] {
			return fmt.Errorf("table %q is not replaceable", t.Name)
		}
	}

	return s.Acquire(ctx, func(tx pgx.Tx) error {
		for _, t := range tables {
			tmp := "tmp_" + t.Name
			createSQL := fmt.Sprintf(
				"CREATE TEMPORARY TABLE %s (LIKE %s INCLUDING ALL) ON COMMIT DROP", tmp, t.Name)
			if _, err := tx.Exec(ctx, createSQL); err != nil {
				return fmt.Errorf("failed to create temp table for %s: %w", t.Name, err)
			}

			copied, err := tx.CopyFrom(ctx, pgx.Identifier{tmp}, t.Columns, pgx.CopyFromRows(t.Rows))
			if err != nil {
				return fmt.Errorf("failed to copy rows into %s: %w", tmp, err)
			}

			if _, err := tx.Exec(ctx, "DELETE FROM "+t.Name); err != nil {
				return fmt.Errorf("failed to clear %s: %w", t.Name, err)
			}

			insertSQL := fmt.Sprintf(
				"INSERT INTO %s SELECT * FROM %s ON CONFLICT DO NOTHING", t.Name, tmp)
			if _, err := tx.Exec(ctx, insertSQL); err != nil {
				return fmt.Errorf("failed to fill %s: %w", t.Name, err)
			}

			log.Printf("Replaced %s: %d rows copied", t.Name, copied)
		}
		return nil
	})
}

// RowCount returns the number of rows in a table
func (s *Store) RowCount(ctx context.Context, table string) (int64, error) {
	if !replaceableTables[table] {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
