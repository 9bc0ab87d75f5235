package domain

import (
	"context"
	"database/sql"
)

// SQLExecutor is the subset of a database handle used to run statements.
// Implemented by *sql.DB, *sql.Conn and engine.Store.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SourceAttacher makes the relational source readable from inside the
// analytical store under a catalog alias.
// Implemented by source.PostgresAttacher.
type SourceAttacher interface {
	Attach(ctx context.Context, db SQLExecutor, alias string) error
	Detach(ctx context.Context, db SQLExecutor, alias string) error
	// Schema returns the source schema that holds the extracted tables.
	Schema() string
}

// SourceInspector checks the relational source before extraction.
// Implemented by source.Inspector.
type SourceInspector interface {
	// CountRows returns the row count of every table, failing when any
	// table does not exist.
	CountRows(ctx context.Context, tables []string) (map[string]int64, error)
}

// TableRef names a table inside the analytical store's catalog.
type TableRef struct {
	Schema string
	Name   string
}

// String returns the dotted schema.name form used in logs.
func (r TableRef) String() string { return r.Schema + "." + r.Name }

// Command is an external process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the inherited environment
}

// CommandResult holds the captured output of a finished process.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandRunner runs an external process to completion.
// Implemented by transform.ExecRunner.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) (CommandResult, error)
}
