// Package export writes the derived dbt models back out as Parquet files.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"duck-elt/internal/domain"
	"duck-elt/internal/engine"
	"duck-elt/internal/snapshot"
)

// Exporter copies each derived model into {parquet dir}/dbt_models. A model
// that cannot be resolved is skipped; a failed write aborts the stage.
type Exporter struct {
	models    []string
	resolvers []Resolver
	layout    snapshot.Layout
	store     engine.Opener
	logger    *slog.Logger
}

// NewExporter creates an Exporter. Resolvers are tried in order for every model.
func NewExporter(
	models []string,
	resolvers []Resolver,
	layout snapshot.Layout,
	store engine.Opener,
	logger *slog.Logger,
) *Exporter {
	return &Exporter{
		models:    models,
		resolvers: resolvers,
		layout:    layout,
		store:     store,
		logger:    logger,
	}
}

// Run exports every model.
func (e *Exporter) Run(ctx context.Context) (*domain.ExportResult, error) {
	if err := snapshot.EnsureDir(e.layout.ModelDir()); err != nil {
		return nil, err
	}

	store, err := e.store.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer store.Close() //nolint:errcheck

	result := &domain.ExportResult{Message: "DBT model export completed successfully"}
	for _, model := range e.models {
		e.logInventory(ctx, store)

		exp, err := e.exportModel(ctx, store, model)
		if err != nil {
			return nil, err
		}
		result.Models = append(result.Models, *exp)
	}
	return result, nil
}

func (e *Exporter) logInventory(ctx context.Context, store *engine.Store) {
	refs, err := store.ListTables(ctx)
	if err != nil {
		e.logger.Warn("failed to list store tables", "error", err)
		return
	}
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.String()
	}
	e.logger.Info("available tables in store", "store", store.Path(), "count", len(names), "tables", names)
}

func (e *Exporter) exportModel(ctx context.Context, store *engine.Store, model string) (*domain.ModelExport, error) {
	e.logger.Info("exporting model", "model", model)
	exp := &domain.ModelExport{Model: model, Path: e.layout.ModelPath(model)}

	for _, r := range e.resolvers {
		rel, err := r.Resolve(ctx, store, model)
		if err != nil {
			exp.ProbeErrors = append(exp.ProbeErrors, fmt.Sprintf("%s: %v", r, err))
			continue
		}
		exp.Relation = rel
		break
	}

	if exp.Relation == "" {
		exp.Status = domain.ModelExportStatusSkipped
		e.logger.Warn("model does not exist in store, skipping export",
			"model", model,
			"errors", exp.ProbeErrors)
		return exp, nil
	}

	if err := store.CopyToParquet(ctx, exp.Relation, exp.Path); err != nil {
		return nil, fmt.Errorf("export %s: %w", model, err)
	}
	info, err := snapshot.Inspect(exp.Path)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", model, err)
	}
	exp.Rows = info.Rows
	exp.Status = domain.ModelExportStatusExported

	e.logger.Info("exported model",
		"model", model,
		"relation", exp.Relation,
		"path", exp.Path,
		"rows", exp.Rows)
	return exp, nil
}
