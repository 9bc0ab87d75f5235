package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"duck-elt/internal/domain"
)

// Compile-time check.
var _ domain.SourceInspector = (*Inspector)(nil)

// pgConnLike is the subset of *pgx.Conn the inspector uses.
type pgConnLike interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

// Inspector checks the source database before extraction: every listed
// table must exist, and its current row count is reported.
type Inspector struct {
	schema  string
	connect func(ctx context.Context) (pgConnLike, error)
}

// NewInspector returns an Inspector that connects with pgx using d.
func NewInspector(d Descriptor, schema string) *Inspector {
	return &Inspector{
		schema: schema,
		connect: func(ctx context.Context) (pgConnLike, error) {
			c, err := pgx.Connect(ctx, d.ConnString())
			if err != nil {
				return nil, err
			}
			return c, nil
		},
	}
}

// CountRows implements domain.SourceInspector.
func (i *Inspector) CountRows(ctx context.Context, tables []string) (map[string]int64, error) {
	conn, err := i.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to source: %w", err)
	}
	defer conn.Close(ctx) //nolint:errcheck

	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		ident := pgx.Identifier{i.schema, table}.Sanitize()

		var exists bool
		if err := conn.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", ident).Scan(&exists); err != nil {
			return nil, fmt.Errorf("look up source table %s: %w", ident, err)
		}
		if !exists {
			return nil, domain.ErrNotFound("source table %s.%s does not exist", i.schema, table)
		}

		var n int64
		if err := conn.QueryRow(ctx, "SELECT count(*) FROM "+ident).Scan(&n); err != nil {
			return nil, fmt.Errorf("count rows in source table %s: %w", ident, err)
		}
		counts[table] = n
	}
	return counts, nil
}
