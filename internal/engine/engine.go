// Package engine wraps the file-backed DuckDB analytical store.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver

	"duck-elt/internal/ddl"
	"duck-elt/internal/domain"
)

// SystemSchemas are the engine's own namespaces, hidden from catalog inventories.
var SystemSchemas = []string{"pg_catalog", "information_schema"}

// Compile-time check.
var _ domain.SQLExecutor = (*Store)(nil)

// Opener acquires a store handle. Each pipeline component opens its own
// handle at entry and closes it at exit so that no handle outlives a stage.
type Opener interface {
	Open(ctx context.Context) (*Store, error)
}

// FileOpener opens the DuckDB database file at Path, creating it and its
// parent directory when missing.
type FileOpener struct {
	Path string
}

// Open implements Opener.
func (o FileOpener) Open(ctx context.Context) (*Store, error) {
	if o.Path == "" {
		return nil, fmt.Errorf("duckdb path is required")
	}
	if dir := filepath.Dir(o.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", o.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %s: %w", o.Path, err)
	}
	// A single pinned connection keeps temporary secrets and attachments
	// visible to every statement issued through this handle.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb %s: %w", o.Path, err)
	}
	return &Store{db: db, path: o.Path}, nil
}

// Store is an exclusively owned handle to the analytical store.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the database file backing the store.
func (s *Store) Path() string { return s.path }

// Close releases the handle and the file lock held by it.
func (s *Store) Close() error {
	return s.db.Close()
}

// ExecContext executes a statement against DuckDB.
func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// QueryRowContext runs a query expected to return at most one row.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// LoadExtension installs (if needed) and loads a DuckDB extension.
func (s *Store) LoadExtension(ctx context.Context, name string) error {
	return LoadExtension(ctx, s, name)
}

// EnsureSchema creates the schema if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context, name string) error {
	stmt, err := ddl.CreateSchemaIfNotExists(name)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create schema %q: %w", name, err)
	}
	return nil
}

// ReplaceTableFromParquet creates or overwrites schema.table with the rows
// of the Parquet file at path.
func (s *Store) ReplaceTableFromParquet(ctx context.Context, schema, table, path string) error {
	stmt, err := ddl.CreateTableFromParquet(schema, table, path)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("load %s.%s from %s: %w", schema, table, path, err)
	}
	return nil
}

// CopyToParquet writes every row of relation to a Parquet file at path,
// overwriting any existing file.
func (s *Store) CopyToParquet(ctx context.Context, relation, path string) error {
	stmt, err := ddl.CopyToParquet(relation, path)
	if err != nil {
		return fmt.Errorf("build COPY: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("copy %s to %s: %w", relation, path, err)
	}
	return nil
}

// Probe returns nil when relation resolves to a readable table or view.
func (s *Store) Probe(ctx context.Context, relation string) error {
	query, err := ddl.ProbeRelation(relation)
	if err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close() //nolint:errcheck
	return rows.Err()
}

// CurrentCatalog returns the name DuckDB gives the store's own database,
// which is derived from the file name (analytics.duckdb → analytics).
func (s *Store) CurrentCatalog(ctx context.Context) (string, error) {
	var name string
	if err := s.db.QueryRowContext(ctx, "SELECT current_database()").Scan(&name); err != nil {
		return "", fmt.Errorf("current catalog: %w", err)
	}
	return name, nil
}

// CountRows returns the number of rows in relation.
func (s *Store) CountRows(ctx context.Context, relation string) (int64, error) {
	query, err := ddl.CountRows(relation)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", relation, err)
	}
	return n, nil
}

// ListTables returns every table in the catalog outside SystemSchemas.
func (s *Store) ListTables(ctx context.Context) ([]domain.TableRef, error) {
	rows, err := s.db.QueryContext(ctx, ddl.ListTablesSQL(SystemSchemas))
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var refs []domain.TableRef
	for rows.Next() {
		var ref domain.TableRef
		if err := rows.Scan(&ref.Schema, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan table ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// LoadExtension installs and loads a DuckDB extension on db.
func LoadExtension(ctx context.Context, db domain.SQLExecutor, name string) error {
	install, err := ddl.InstallExtension(name)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	load, err := ddl.LoadExtension(name)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if _, err := db.ExecContext(ctx, install); err != nil {
		return fmt.Errorf("install extension %s: %w", name, err)
	}
	if _, err := db.ExecContext(ctx, load); err != nil {
		return fmt.Errorf("load extension %s: %w", name, err)
	}
	return nil
}
