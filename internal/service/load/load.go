// Package load materializes snapshot files as raw tables in the analytical store.
package load

import (
	"context"
	"fmt"
	"log/slog"

	"duck-elt/internal/ddl"
	"duck-elt/internal/domain"
	"duck-elt/internal/engine"
	"duck-elt/internal/snapshot"
)

// DefaultSchema is the namespace raw tables are loaded into.
const DefaultSchema = "raw"

// Loader replaces one raw table per snapshot file and reports row-count
// verifications. A missing or unreadable snapshot aborts the stage; a
// count mismatch never does.
type Loader struct {
	tables []string
	schema string
	layout snapshot.Layout
	store  engine.Opener
	logger *slog.Logger
}

// NewLoader creates a Loader writing into schema.
func NewLoader(tables []string, schema string, layout snapshot.Layout, store engine.Opener, logger *slog.Logger) *Loader {
	return &Loader{
		tables: tables,
		schema: schema,
		layout: layout,
		store:  store,
		logger: logger,
	}
}

// Run loads every table, then verifies row counts.
func (l *Loader) Run(ctx context.Context) (*domain.LoadResult, error) {
	store, err := l.store.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close() //nolint:errcheck

	if err := store.EnsureSchema(ctx, l.schema); err != nil {
		return nil, err
	}

	expected := make(map[string]int64, len(l.tables))
	for _, table := range l.tables {
		path := l.layout.RawPath(table)
		l.logger.Info("loading snapshot", "table", table, "path", path)

		info, err := snapshot.Inspect(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", table, err)
		}
		if err := store.ReplaceTableFromParquet(ctx, l.schema, table, path); err != nil {
			return nil, fmt.Errorf("load %s: %w", table, err)
		}
		expected[table] = info.Rows
		l.logger.Info("loaded table", "table", table, "schema", l.schema, "store", store.Path())
	}

	result := &domain.LoadResult{Message: "Data loaded into DuckDB successfully"}
	for _, table := range l.tables {
		v, err := l.verify(ctx, store, table, expected[table])
		if err != nil {
			return nil, err
		}
		result.Verifications = append(result.Verifications, v)
	}
	return result, nil
}

func (l *Loader) verify(ctx context.Context, store *engine.Store, table string, expected int64) (domain.Verification, error) {
	rel, err := ddl.Relation(l.schema, table)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("verify %s: %w", table, err)
	}
	n, err := store.CountRows(ctx, rel)
	if err != nil {
		return domain.Verification{}, fmt.Errorf("verify %s: %w", table, err)
	}

	v := domain.Verification{Table: l.schema + "." + table, Expected: expected, Actual: n}
	if v.Match() {
		l.logger.Info("verified table", "table", v.Table, "records", n)
	} else {
		l.logger.Warn("row count mismatch after load", "table", v.Table, "expected", expected, "actual", n)
	}
	return v, nil
}
