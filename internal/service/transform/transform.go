// Package transform invokes the dbt transformation runner.
package transform

import (
	"context"
	"log/slog"

	"duck-elt/internal/domain"
)

// Options locate the dbt project and its profiles.
type Options struct {
	Executable  string // dbt binary, resolved through PATH
	ProjectDir  string // working directory of the run
	ProfilesDir string // DBT_PROFILES_DIR, relative to ProjectDir when not absolute
}

// Transformer runs `dbt run` as one opaque, blocking unit of work.
// Model ordering and dependencies are dbt's concern.
type Transformer struct {
	opts   Options
	runner domain.CommandRunner
	logger *slog.Logger
}

// NewTransformer creates a Transformer.
func NewTransformer(opts Options, runner domain.CommandRunner, logger *slog.Logger) *Transformer {
	return &Transformer{opts: opts, runner: runner, logger: logger}
}

// Command returns the process invocation used by Run.
func (t *Transformer) Command() domain.Command {
	return domain.Command{
		Name: t.opts.Executable,
		Args: []string{"run", "--no-use-colors"},
		Dir:  t.opts.ProjectDir,
		Env:  []string{"DBT_PROFILES_DIR=" + t.opts.ProfilesDir},
	}
}

// Run executes dbt. On failure both output streams are logged and the
// error is returned as *domain.RunnerError; there is no retry.
func (t *Transformer) Run(ctx context.Context) (*domain.TransformResult, error) {
	cmd := t.Command()
	t.logger.Info("running dbt models",
		"executable", cmd.Name,
		"project_dir", cmd.Dir,
		"profiles_dir", t.opts.ProfilesDir)

	res, err := t.runner.Run(ctx, cmd)
	if err != nil {
		t.logger.Error("error running dbt models",
			"error", err,
			"exit_code", res.ExitCode,
			"stdout", res.Stdout,
			"stderr", res.Stderr)
		return nil, &domain.RunnerError{
			ExitCode: res.ExitCode,
			Stdout:   res.Stdout,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}

	t.logger.Info("dbt run finished", "exit_code", res.ExitCode, "stdout", res.Stdout)
	return &domain.TransformResult{
		Message:  "DBT models run successfully",
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
	}, nil
}
