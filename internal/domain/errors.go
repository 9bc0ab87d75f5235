// Package domain defines core types, interfaces, and errors for the ELT pipeline.
package domain

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// StageError wraps the error that terminated a pipeline stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// RunnerError reports a failed transformation runner invocation together
// with the output it produced.
type RunnerError struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *RunnerError) Error() string {
	return fmt.Sprintf("transformation runner exited with status %d: %v", e.ExitCode, e.Err)
}

func (e *RunnerError) Unwrap() error { return e.Err }

// VerificationError is returned when a strict verification policy rejects
// a load whose row counts do not match.
type VerificationError struct {
	Mismatches []Verification
}

func (e *VerificationError) Error() string {
	parts := make([]string, 0, len(e.Mismatches))
	for _, v := range e.Mismatches {
		parts = append(parts, fmt.Sprintf("%s (expected %d, got %d)", v.Table, v.Expected, v.Actual))
	}
	return "row count mismatch: " + strings.Join(parts, ", ")
}
