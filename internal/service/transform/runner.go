package transform

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"duck-elt/internal/domain"
)

// Compile-time check.
var _ domain.CommandRunner = ExecRunner{}

// ExecRunner runs commands as child processes, capturing stdout and stderr.
type ExecRunner struct{}

// Run implements domain.CommandRunner. The returned result carries the
// captured output even when err is non-nil.
func (ExecRunner) Run(ctx context.Context, cmd domain.Command) (domain.CommandResult, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec // command is fixed configuration
	c.Dir = cmd.Dir
	c.Env = append(os.Environ(), cmd.Env...)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := domain.CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}
	return res, err
}
