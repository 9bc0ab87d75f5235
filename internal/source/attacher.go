package source

import (
	"context"
	"fmt"

	"duck-elt/internal/ddl"
	"duck-elt/internal/domain"
	"duck-elt/internal/engine"
)

// secretName is the temporary DuckDB secret that carries the source credentials.
const secretName = "elt_source"

// Compile-time check.
var _ domain.SourceAttacher = (*PostgresAttacher)(nil)

// PostgresAttacher attaches the source database to DuckDB through the
// postgres extension. Credentials travel in a temporary secret, never in
// the ATTACH string; only non-secret settings such as sslmode do.
type PostgresAttacher struct {
	desc   Descriptor
	schema string
}

// NewPostgresAttacher creates a PostgresAttacher reading tables from schema.
func NewPostgresAttacher(d Descriptor, schema string) *PostgresAttacher {
	return &PostgresAttacher{desc: d, schema: schema}
}

// Schema implements domain.SourceAttacher.
func (a *PostgresAttacher) Schema() string { return a.schema }

// Attach implements domain.SourceAttacher.
func (a *PostgresAttacher) Attach(ctx context.Context, db domain.SQLExecutor, alias string) error {
	if err := engine.LoadExtension(ctx, db, "postgres"); err != nil {
		return err
	}

	secretSQL, err := ddl.CreatePostgresSecret(a.desc.Secret(secretName))
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if _, err := db.ExecContext(ctx, secretSQL); err != nil {
		return fmt.Errorf("create source secret: %w", err)
	}

	attachSQL, err := ddl.AttachPostgres(alias, secretName, a.desc.AttachParams())
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if _, err := db.ExecContext(ctx, attachSQL); err != nil {
		return fmt.Errorf("attach source %s: %w", a.desc.Redacted(), err)
	}
	return nil
}

// Detach implements domain.SourceAttacher.
func (a *PostgresAttacher) Detach(ctx context.Context, db domain.SQLExecutor, alias string) error {
	detachSQL, err := ddl.DetachCatalog(alias)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if _, err := db.ExecContext(ctx, detachSQL); err != nil {
		return fmt.Errorf("detach source: %w", err)
	}
	dropSQL, err := ddl.DropSecret(secretName)
	if err != nil {
		return fmt.Errorf("build DDL: %w", err)
	}
	if _, err := db.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("drop source secret: %w", err)
	}
	return nil
}
