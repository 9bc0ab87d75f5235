// Package extract copies the source tables into Parquet snapshot files.
package extract

import (
	"context"
	"fmt"
	"log/slog"

	"duck-elt/internal/ddl"
	"duck-elt/internal/domain"
	"duck-elt/internal/engine"
	"duck-elt/internal/snapshot"
)

// sourceAlias is the catalog name the source database is attached under.
const sourceAlias = "src"

// Extractor writes one snapshot file per source table, in list order.
// Any failure aborts the whole extraction.
type Extractor struct {
	tables    []string
	layout    snapshot.Layout
	store     engine.Opener
	source    domain.SourceAttacher
	inspector domain.SourceInspector
	logger    *slog.Logger
}

// NewExtractor creates an Extractor. inspector may be nil, in which case no
// source preflight runs.
func NewExtractor(
	tables []string,
	layout snapshot.Layout,
	store engine.Opener,
	source domain.SourceAttacher,
	inspector domain.SourceInspector,
	logger *slog.Logger,
) *Extractor {
	return &Extractor{
		tables:    tables,
		layout:    layout,
		store:     store,
		source:    source,
		inspector: inspector,
		logger:    logger,
	}
}

// Run extracts every table.
func (e *Extractor) Run(ctx context.Context) (*domain.ExtractResult, error) {
	e.logger.Info("starting data extraction", "tables", e.tables)

	if err := snapshot.EnsureDir(e.layout.Dir); err != nil {
		return nil, err
	}

	var sourceCounts map[string]int64
	if e.inspector != nil {
		counts, err := e.inspector.CountRows(ctx, e.tables)
		if err != nil {
			return nil, fmt.Errorf("source preflight: %w", err)
		}
		sourceCounts = counts
	}

	store, err := e.store.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close() //nolint:errcheck

	if err := e.source.Attach(ctx, store, sourceAlias); err != nil {
		return nil, fmt.Errorf("attach source: %w", err)
	}
	defer func() {
		if err := e.source.Detach(ctx, store, sourceAlias); err != nil {
			e.logger.Warn("failed to detach source", "error", err)
		}
	}()

	result := &domain.ExtractResult{Message: "Data extraction completed successfully"}
	for _, table := range e.tables {
		snap, err := e.extractTable(ctx, store, table)
		if err != nil {
			return nil, err
		}

		attrs := []any{"table", table, "path", snap.Path, "rows", snap.Rows}
		if n, ok := sourceCounts[table]; ok {
			snap.SourceRows = &n
			attrs = append(attrs, "source_rows", n)
			if n != snap.Rows {
				e.logger.Warn("snapshot row count differs from source", attrs...)
			}
		}
		e.logger.Info("saved snapshot", attrs...)
		result.Snapshots = append(result.Snapshots, *snap)
	}
	return result, nil
}

func (e *Extractor) extractTable(ctx context.Context, store *engine.Store, table string) (*domain.SnapshotFile, error) {
	e.logger.Info("extracting table", "table", table)

	rel, err := ddl.Relation(sourceAlias, e.source.Schema(), table)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", table, err)
	}
	path := e.layout.RawPath(table)
	if err := store.CopyToParquet(ctx, rel, path); err != nil {
		return nil, fmt.Errorf("extract %s: %w", table, err)
	}

	info, err := snapshot.Inspect(path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", table, err)
	}
	return &domain.SnapshotFile{Table: table, Path: path, Rows: info.Rows}, nil
}
