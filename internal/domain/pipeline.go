package domain

import "time"

// Stage identifies one step of the pipeline.
type Stage string

// Pipeline stages in execution order.
const (
	StageExtract   Stage = "extract"
	StageLoad      Stage = "load"
	StageTransform Stage = "transform"
	StageExport    Stage = "export"
)

// Stages lists every stage in the order the driver runs them.
var Stages = []Stage{StageExtract, StageLoad, StageTransform, StageExport}

// Stage status constants.
const (
	StageStatusPending   = "PENDING"
	StageStatusRunning   = "RUNNING"
	StageStatusSucceeded = "SUCCEEDED"
	StageStatusFailed    = "FAILED"
	StageStatusSkipped   = "SKIPPED"
)

// Model export status constants.
const (
	ModelExportStatusExported = "EXPORTED"
	ModelExportStatusSkipped  = "SKIPPED"
)

// Verification policy constants.
const (
	VerifyPolicyWarn   = "warn"
	VerifyPolicyStrict = "strict"
)

// ExtractResult is the outcome of a successful extraction.
type ExtractResult struct {
	Message   string
	Snapshots []SnapshotFile
}

// SnapshotFile describes one snapshot written by the extractor.
type SnapshotFile struct {
	Table      string
	Path       string
	Rows       int64
	SourceRows *int64 // nil when no source preflight ran
}

// Verification compares the row count of a snapshot file with the row
// count of the raw table loaded from it.
type Verification struct {
	Table    string
	Expected int64
	Actual   int64
}

// Match reports whether the loaded table holds exactly the snapshot's rows.
func (v Verification) Match() bool { return v.Expected == v.Actual }

// LoadResult is the outcome of a successful load.
type LoadResult struct {
	Message       string
	Verifications []Verification
}

// Mismatches returns the verifications whose counts differ.
func (r *LoadResult) Mismatches() []Verification {
	var out []Verification
	for _, v := range r.Verifications {
		if !v.Match() {
			out = append(out, v)
		}
	}
	return out
}

// TransformResult is the outcome of a successful transformation run.
type TransformResult struct {
	Message  string
	ExitCode int
	Stdout   string
}

// ModelExport records what happened to one derived model during export.
type ModelExport struct {
	Model       string
	Status      string
	Relation    string // resolved relation, empty when skipped
	Path        string
	Rows        int64
	ProbeErrors []string
}

// ExportResult is the outcome of a successful export stage.
type ExportResult struct {
	Message string
	Models  []ModelExport
}

// Exported returns the names of models written to snapshot files.
func (r *ExportResult) Exported() []string {
	var out []string
	for _, m := range r.Models {
		if m.Status == ModelExportStatusExported {
			out = append(out, m.Model)
		}
	}
	return out
}

// StageReport records the status of a single stage in a run.
type StageReport struct {
	Stage      Stage
	Status     string
	Message    string
	StartedAt  *time.Time
	FinishedAt *time.Time
	Err        error
}

// RunReport summarises one end-to-end pipeline execution.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageReport
}

// Succeeded reports whether every stage completed.
func (r *RunReport) Succeeded() bool {
	for _, s := range r.Stages {
		if s.Status != StageStatusSucceeded {
			return false
		}
	}
	return len(r.Stages) > 0
}
