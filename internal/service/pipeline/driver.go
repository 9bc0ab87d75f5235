// Package pipeline runs the extract, load, transform and export stages in
// order and stops at the first failure.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"duck-elt/internal/domain"
)

// Extractor copies source tables into snapshot files.
type Extractor interface {
	Run(ctx context.Context) (*domain.ExtractResult, error)
}

// Loader loads snapshot files into the raw schema.
type Loader interface {
	Run(ctx context.Context) (*domain.LoadResult, error)
}

// Transformer runs the dbt models.
type Transformer interface {
	Run(ctx context.Context) (*domain.TransformResult, error)
}

// Exporter writes derived models to snapshot files.
type Exporter interface {
	Run(ctx context.Context) (*domain.ExportResult, error)
}

// Driver sequences the four stages. It holds no state between runs.
type Driver struct {
	extractor   Extractor
	loader      Loader
	transformer Transformer
	exporter    Exporter
	policy      string
	logger      *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewDriver creates a Driver. policy is domain.VerifyPolicyWarn or
// domain.VerifyPolicyStrict; anything else is treated as warn.
func NewDriver(
	extractor Extractor,
	loader Loader,
	transformer Transformer,
	exporter Exporter,
	policy string,
	logger *slog.Logger,
) *Driver {
	return &Driver{
		extractor:   extractor,
		loader:      loader,
		transformer: transformer,
		exporter:    exporter,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

type step struct {
	stage domain.Stage
	title string
	run   func(ctx context.Context) (string, error)
}

func (d *Driver) steps() []step {
	return []step{
		{domain.StageExtract, "Extract data from PostgreSQL to Parquet", d.extract},
		{domain.StageLoad, "Load Parquet files into DuckDB", d.load},
		{domain.StageTransform, "Run DBT models", d.transform},
		{domain.StageExport, "Export DBT models to Parquet", d.export},
	}
}

// Run executes every stage in order. On failure the remaining stages are
// reported as skipped and the error is returned as *domain.StageError. The
// report is returned in both cases.
func (d *Driver) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{RunID: d.newID(), StartedAt: d.now()}
	logger := d.logger.With("run_id", report.RunID)
	logger.Info("starting pipeline run", "started_at", report.StartedAt.Format(time.RFC3339))

	steps := d.steps()
	report.Stages = make([]domain.StageReport, len(steps))
	for i, s := range steps {
		report.Stages[i] = domain.StageReport{Stage: s.stage, Status: domain.StageStatusPending}
	}

	var runErr error
	for i, s := range steps {
		sr := &report.Stages[i]
		if runErr != nil {
			sr.Status = domain.StageStatusSkipped
			continue
		}

		logger.Info(fmt.Sprintf("=== STEP %d: %s ===", i+1, s.title))
		started := d.now()
		sr.StartedAt = &started
		sr.Status = domain.StageStatusRunning

		msg, err := s.run(ctx)
		finished := d.now()
		sr.FinishedAt = &finished
		if err != nil {
			sr.Status = domain.StageStatusFailed
			sr.Err = err
			runErr = &domain.StageError{Stage: s.stage, Err: err}
			continue
		}
		sr.Status = domain.StageStatusSucceeded
		sr.Message = msg
		logger.Info(msg, "stage", s.stage, "duration", finished.Sub(started))
	}

	report.FinishedAt = d.now()
	if runErr != nil {
		logger.Error("pipeline failed",
			"error", runErr,
			"finished_at", report.FinishedAt.Format(time.RFC3339))
		return report, runErr
	}
	logger.Info("pipeline completed successfully",
		"finished_at", report.FinishedAt.Format(time.RFC3339),
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

func (d *Driver) extract(ctx context.Context) (string, error) {
	res, err := d.extractor.Run(ctx)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func (d *Driver) load(ctx context.Context) (string, error) {
	res, err := d.loader.Run(ctx)
	if err != nil {
		return "", err
	}
	if mm := res.Mismatches(); len(mm) > 0 && d.policy == domain.VerifyPolicyStrict {
		return "", &domain.VerificationError{Mismatches: mm}
	}
	return res.Message, nil
}

func (d *Driver) transform(ctx context.Context) (string, error) {
	res, err := d.transformer.Run(ctx)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}

func (d *Driver) export(ctx context.Context) (string, error) {
	res, err := d.exporter.Run(ctx)
	if err != nil {
		return "", err
	}
	return res.Message, nil
}
