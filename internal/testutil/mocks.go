// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"database/sql"

	"duck-elt/internal/domain"
)

// === SQL Executor Mock ===

// MockSQLExecutor implements domain.SQLExecutor by recording statements.
type MockSQLExecutor struct {
	ExecFn     func(query string) error
	Statements []string // collected statements for assertions
}

// ExecContext implements the interface method for testing.
func (m *MockSQLExecutor) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	m.Statements = append(m.Statements, query)
	if m.ExecFn != nil {
		return nil, m.ExecFn(query)
	}
	return nil, nil
}

// QueryRowContext implements the interface method for testing.
func (m *MockSQLExecutor) QueryRowContext(_ context.Context, _ string, _ ...any) *sql.Row {
	panic("unexpected call to MockSQLExecutor.QueryRowContext")
}

// === Source Inspector Mock ===

// MockSourceInspector implements domain.SourceInspector for testing.
type MockSourceInspector struct {
	CountRowsFn func(ctx context.Context, tables []string) (map[string]int64, error)
}

// CountRows implements the interface method for testing.
func (m *MockSourceInspector) CountRows(ctx context.Context, tables []string) (map[string]int64, error) {
	if m.CountRowsFn != nil {
		return m.CountRowsFn(ctx, tables)
	}
	panic("unexpected call to MockSourceInspector.CountRows")
}

// === Command Runner Mock ===

// MockCommandRunner implements domain.CommandRunner for testing.
type MockCommandRunner struct {
	RunFn    func(ctx context.Context, cmd domain.Command) (domain.CommandResult, error)
	Commands []domain.Command // collected invocations for assertions
}

// Run implements the interface method for testing.
func (m *MockCommandRunner) Run(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	m.Commands = append(m.Commands, cmd)
	if m.RunFn != nil {
		return m.RunFn(ctx, cmd)
	}
	return domain.CommandResult{}, nil
}

// === Stage Mocks ===

// MockExtractor implements pipeline.Extractor for testing.
type MockExtractor struct {
	RunFn func(ctx context.Context) (*domain.ExtractResult, error)
	Calls int
}

// Run implements the interface method for testing.
func (m *MockExtractor) Run(ctx context.Context) (*domain.ExtractResult, error) {
	m.Calls++
	if m.RunFn != nil {
		return m.RunFn(ctx)
	}
	return &domain.ExtractResult{Message: "extracted"}, nil
}

// MockLoader implements pipeline.Loader for testing.
type MockLoader struct {
	RunFn func(ctx context.Context) (*domain.LoadResult, error)
	Calls int
}

// Run implements the interface method for testing.
func (m *MockLoader) Run(ctx context.Context) (*domain.LoadResult, error) {
	m.Calls++
	if m.RunFn != nil {
		return m.RunFn(ctx)
	}
	return &domain.LoadResult{Message: "loaded"}, nil
}

// MockTransformer implements pipeline.Transformer for testing.
type MockTransformer struct {
	RunFn func(ctx context.Context) (*domain.TransformResult, error)
	Calls int
}

// Run implements the interface method for testing.
func (m *MockTransformer) Run(ctx context.Context) (*domain.TransformResult, error) {
	m.Calls++
	if m.RunFn != nil {
		return m.RunFn(ctx)
	}
	return &domain.TransformResult{Message: "transformed"}, nil
}

// MockExporter implements pipeline.Exporter for testing.
type MockExporter struct {
	RunFn func(ctx context.Context) (*domain.ExportResult, error)
	Calls int
}

// Run implements the interface method for testing.
func (m *MockExporter) Run(ctx context.Context) (*domain.ExportResult, error) {
	m.Calls++
	if m.RunFn != nil {
		return m.RunFn(ctx)
	}
	return &domain.ExportResult{Message: "exported"}, nil
}
