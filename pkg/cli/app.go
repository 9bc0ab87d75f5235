package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"duck-elt/internal/config"
	"duck-elt/internal/dbtproject"
	"duck-elt/internal/ddl"
	"duck-elt/internal/domain"
	"duck-elt/internal/engine"
	"duck-elt/internal/service/export"
	"duck-elt/internal/service/extract"
	"duck-elt/internal/service/load"
	"duck-elt/internal/service/pipeline"
	"duck-elt/internal/service/transform"
	"duck-elt/internal/snapshot"
	"duck-elt/internal/source"
)

func run(ctx context.Context, opts options) error {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return fmt.Errorf("load %s: %w", opts.envFile, err)
	}
	cfg, err := config.Load(opts.manifest)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(opts.stderr, cfg.SlogLevel())
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	report, err := buildDriver(cfg, logger).Run(ctx)
	logReport(logger, report)
	return err
}

// logReport emits one line per stage so the final state of a run can be read
// without scanning the stage logs.
func logReport(logger *slog.Logger, report *domain.RunReport) {
	if report == nil {
		return
	}
	for _, s := range report.Stages {
		attrs := []any{"run_id", report.RunID, "stage", s.Stage, "status", s.Status}
		if s.StartedAt != nil && s.FinishedAt != nil {
			attrs = append(attrs, "duration", s.FinishedAt.Sub(*s.StartedAt))
		}
		if s.Message != "" {
			attrs = append(attrs, "message", s.Message)
		}
		if s.Err != nil {
			attrs = append(attrs, "error", s.Err)
		}
		logger.Info("stage summary", attrs...)
	}
	logger.Info("run summary", "run_id", report.RunID, "succeeded", report.Succeeded(),
		"duration", report.FinishedAt.Sub(report.StartedAt))
}

// newLogger writes text to a terminal and JSON everywhere else.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func buildDriver(cfg *config.Config, logger *slog.Logger) *pipeline.Driver {
	layout := snapshot.Layout{Dir: cfg.Paths.ParquetDir}
	store := engine.FileOpener{Path: cfg.Paths.DuckDBPath}
	modelSchema := resolveModelSchema(cfg, logger)

	logger.Info("pipeline configured",
		"source", cfg.Source.Redacted(),
		"source_schema", cfg.SourceSchema,
		"store", cfg.Paths.DuckDBPath,
		"parquet_dir", cfg.Paths.ParquetDir,
		"dbt_project_dir", cfg.Paths.DBTProjectDir,
		"tables", cfg.Tables,
		"models", cfg.Models,
		"model_schema", modelSchema,
		"verify_policy", cfg.VerifyPolicy)

	var inspector domain.SourceInspector
	if cfg.Preflight {
		inspector = source.NewInspector(cfg.Source, cfg.SourceSchema)
	}

	return pipeline.NewDriver(
		extract.NewExtractor(
			cfg.Tables, layout, store,
			source.NewPostgresAttacher(cfg.Source, cfg.SourceSchema),
			inspector,
			logger.With("component", "extractor"),
		),
		load.NewLoader(cfg.Tables, load.DefaultSchema, layout, store, logger.With("component", "loader")),
		transform.NewTransformer(
			transform.Options{
				Executable:  cfg.Paths.DBTExecutable,
				ProjectDir:  cfg.Paths.DBTProjectDir,
				ProfilesDir: cfg.Paths.DBTProfilesDir,
			},
			transform.ExecRunner{},
			logger.With("component", "transformer"),
		),
		export.NewExporter(
			cfg.Models, export.DefaultResolvers(modelSchema), layout, store,
			logger.With("component", "exporter"),
		),
		cfg.VerifyPolicy,
		logger,
	)
}

// resolveModelSchema picks the primary export namespace: the configured
// model schema, else the schema of the active dbt target, else main.
func resolveModelSchema(cfg *config.Config, logger *slog.Logger) string {
	if cfg.ModelSchema != "" {
		return cfg.ModelSchema
	}

	target, err := dbtproject.ResolveTarget(cfg.Paths.DBTProjectDir, cfg.Paths.ProfilesDir())
	if err != nil {
		logger.Warn("could not read dbt target, exporting from default schema",
			"schema", dbtproject.DefaultSchema, "error", err)
		return dbtproject.DefaultSchema
	}
	schema := target.SchemaOrDefault()
	if err := ddl.ValidateIdentifier(schema); err != nil {
		logger.Warn("dbt target schema is not a plain identifier, exporting from default schema",
			"target", target.Name, "schema", schema, "error", err)
		return dbtproject.DefaultSchema
	}

	if target.Type != "" && target.Type != "duckdb" {
		logger.Warn("dbt target is not a duckdb target", "target", target.Name, "type", target.Type)
	}
	if target.Path != "" && !samePath(targetPath(cfg.Paths.DBTProjectDir, target.Path), cfg.Paths.DuckDBPath) {
		logger.Warn("dbt target path differs from the pipeline store",
			"target", target.Name, "target_path", target.Path, "store", cfg.Paths.DuckDBPath)
	}
	return schema
}

// targetPath resolves a dbt-duckdb path the way dbt does: relative to the
// directory dbt runs in.
func targetPath(projectDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
