package testutil

import (
	"context"
	"fmt"

	"duck-elt/internal/ddl"
	"duck-elt/internal/domain"
)

// Compile-time check.
var _ domain.SourceAttacher = (*MemorySource)(nil)

// MemorySource implements domain.SourceAttacher with an in-memory DuckDB
// database attached under the alias, standing in for the Postgres source.
// Tables maps each table name to the SELECT that produces its rows.
type MemorySource struct {
	SchemaName string
	Tables     map[string]string
	AttachErr  error
	Attached   bool
	Detached   bool
}

// Schema implements domain.SourceAttacher.
func (m *MemorySource) Schema() string { return m.SchemaName }

// Attach implements domain.SourceAttacher.
func (m *MemorySource) Attach(ctx context.Context, db domain.SQLExecutor, alias string) error {
	if m.AttachErr != nil {
		return m.AttachErr
	}
	stmts := []string{
		fmt.Sprintf("ATTACH ':memory:' AS %s", ddl.QuoteIdentifier(alias)),
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s.%s", ddl.QuoteIdentifier(alias), ddl.QuoteIdentifier(m.SchemaName)),
	}
	for table, query := range m.Tables {
		rel, err := ddl.Relation(alias, m.SchemaName, table)
		if err != nil {
			return err
		}
		stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s AS %s", rel, query))
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("memory source: %w", err)
		}
	}
	m.Attached = true
	return nil
}

// Detach implements domain.SourceAttacher.
func (m *MemorySource) Detach(ctx context.Context, db domain.SQLExecutor, alias string) error {
	stmt, err := ddl.DetachCatalog(alias)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return err
	}
	m.Detached = true
	return nil
}
